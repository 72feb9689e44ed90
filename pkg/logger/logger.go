package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const consoleTimeFormat = "15:04:05"

var Logger zerolog.Logger

func init() {
	Init(os.Stderr, "info")
}

// Init configures the package logger and the zerolog global logger.
func Init(out io.Writer, level string) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: consoleTimeFormat,
	}

	Logger = zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	log.Logger = Logger
}

// SetLevel switches the minimum level, e.g. "debug" or "warn".
func SetLevel(level string) {
	Logger = Logger.Level(parseLevel(level))
	log.Logger = Logger
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// With returns a child logger carrying a component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
