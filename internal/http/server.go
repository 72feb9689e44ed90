package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"docshare/internal/auth"
	"docshare/internal/config"
	"docshare/internal/http/handler"
	"docshare/internal/http/middleware"
	"docshare/internal/service"
	"docshare/internal/sweeper"
	"docshare/pkg/logger"
	"docshare/pkg/metrics"
	"docshare/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	statusDegraded   = "degraded"
	requestBodyLimit = "1M"
	healthTimeout    = 2 * time.Second

	// Room for multipart boundaries and form fields around the file part.
	multipartOverhead = 1 << 20
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerDependencies struct {
	Config         *config.Config
	Folders        *service.FolderService
	Files          *service.FileService
	Bulk           *service.BulkService
	Usage          *service.UsageService
	Shares         *service.ShareService
	Sweeper        *sweeper.Sweeper
	ShareEvents    handler.ShareEventQuerier
	AuthMiddleware *auth.Middleware
	Database       Pinger
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders(deps.Config.Server.Secure))
	e.Use(requestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(metrics.MetricsMiddleware())

	uploadLimit := fmt.Sprintf("%dB", deps.Config.App.MaxUploadSize+multipartOverhead)
	e.Use(echomiddleware.BodyLimitWithConfig(echomiddleware.BodyLimitConfig{
		Limit: requestBodyLimit,
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == stdhttp.MethodPost && c.Path() == "/api/files"
		},
	}))

	globalRateLimiter := middleware.NewGlobalRateLimiter()
	shareRateLimiter := middleware.NewShareRateLimiter()
	passwordRateLimiter := middleware.NewPasswordRateLimiter()

	folderHandler := handler.NewFolderHandler(deps.Folders)
	fileHandler := handler.NewFileHandler(deps.Files)
	bulkHandler := handler.NewBulkHandler(deps.Bulk)
	libraryHandler := handler.NewLibraryHandler(deps.Folders, deps.Files, deps.Usage, deps.Sweeper)
	shareHandler := handler.NewShareHandler(deps.Shares, deps.ShareEvents)
	publicShareHandler := handler.NewPublicShareHandler(deps.Shares)

	s := &Server{
		echo: e,
		deps: deps,
	}

	e.GET("/health", s.healthCheck)
	metrics.RegisterMetricsRoute(e)

	// Share links work with or without a signed-in user.
	public := e.Group("/s")
	public.Use(deps.AuthMiddleware.OptionalJWT())
	public.Use(middleware.ShareSession(deps.Config.App.ShareVerificationTTL, deps.Config.Server.Secure))
	public.Use(shareRateLimiter.Middleware())
	public.GET("/:id", publicShareHandler.View)
	public.POST("/:id", publicShareHandler.SubmitPassword, passwordRateLimiter.Middleware())
	public.GET("/:id/download", publicShareHandler.Download)
	public.GET("/:id/files/:file_id/download", publicShareHandler.DownloadFromFolder)

	api := e.Group("/api")
	api.Use(deps.AuthMiddleware.RequireJWT())
	api.Use(globalRateLimiter.Middleware())

	api.GET("/folders", folderHandler.ListRoot)
	api.POST("/folders", folderHandler.CreateFolder)
	api.GET("/folders/:id", folderHandler.GetFolder)
	api.PATCH("/folders/:id", folderHandler.UpdateFolder)
	api.POST("/folders/:id/trash", folderHandler.TrashFolder)
	api.POST("/folders/:id/restore", folderHandler.RestoreFolder)
	api.POST("/folders/:id/favorite", folderHandler.ToggleFavorite)

	api.POST("/files", fileHandler.UploadFile, echomiddleware.BodyLimit(uploadLimit))
	api.GET("/files/:id", fileHandler.GetFile)
	api.GET("/files/:id/download", fileHandler.DownloadFile)
	api.GET("/files/:id/preview", fileHandler.PreviewFile)
	api.PATCH("/files/:id", fileHandler.UpdateFile)
	api.POST("/files/:id/trash", fileHandler.TrashFile)
	api.POST("/files/:id/restore", fileHandler.RestoreFile)
	api.POST("/files/:id/favorite", fileHandler.ToggleFavorite)
	api.DELETE("/files/:id", fileHandler.DeleteFile)

	api.POST("/bulk/files", bulkHandler.Files)
	api.POST("/bulk/folders", bulkHandler.Folders)

	api.GET("/favorites", libraryHandler.Favorites)
	api.GET("/recent", libraryHandler.Recent)
	api.GET("/trash", libraryHandler.Trash)
	api.POST("/trash/empty", libraryHandler.EmptyTrash)
	api.GET("/search", libraryHandler.Search)
	api.GET("/storage/usage", libraryHandler.Usage)

	api.POST("/shares", shareHandler.CreateShare)
	api.GET("/shares", shareHandler.ListShares)
	api.GET("/shares/:id", shareHandler.GetShare)
	api.PATCH("/shares/:id", shareHandler.UpdateShare)
	api.DELETE("/shares/:id", shareHandler.DeleteShare)
	api.GET("/shares/:id/events", shareHandler.ListShareEvents)

	if deps.Config.App.Profiling {
		debug := e.Group("/debug/pprof")
		debug.Use(deps.AuthMiddleware.RequireJWT())
		profiling.RegisterPprofRoutes(debug)
	}

	return s
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Database.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("health check: database unreachable")
			return c.JSON(stdhttp.StatusServiceUnavailable, map[string]string{
				jsonKeyStatus: statusDegraded,
			})
		}
	}

	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}

// requestLogger feeds echo's request logging into zerolog.
func requestLogger() echo.MiddlewareFunc {
	log := logger.With("http")
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURIPath:   true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= stdhttp.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			} else if v.Status >= stdhttp.StatusBadRequest {
				event = log.Warn()
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
