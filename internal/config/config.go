package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envServerSecure          = "SERVER_SECURE"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envBlobBackend           = "BLOB_BACKEND"
	envBlobBucket            = "BLOB_BUCKET"
	envBlobEndpoint          = "BLOB_ENDPOINT"
	envBlobUseSSL            = "BLOB_USE_SSL"
	envBlobPathStyle         = "BLOB_PATH_STYLE"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envRedisDB               = "REDIS_DB"
	envJWTSecret             = "JWT_SECRET"
	envJWTExpiry             = "JWT_EXPIRY_MINUTES"
	envMaxUploadSize         = "MAX_UPLOAD_SIZE"
	envStorageQuota          = "STORAGE_QUOTA_BYTES"
	envTrashRetentionDays    = "TRASH_RETENTION_DAYS"
	envTrashSweepInterval    = "TRASH_SWEEP_INTERVAL"
	envShareVerificationTTL  = "SHARE_VERIFICATION_TTL"
	envSearchLimit           = "SEARCH_LIMIT"
	envLogLevel              = "LOG_LEVEL"
	envEnableProfiling       = "ENABLE_PROFILING"
	envForbiddenExtensions   = "FORBIDDEN_EXTENSIONS"
	envAllowedFileTypes      = "ALLOWED_FILE_TYPES"
)

const (
	BlobBackendS3    = "s3"
	BlobBackendMinIO = "minio"
)

const (
	defaultServerPort           = "8080"
	defaultServerReadTimeout    = 30 * time.Second
	defaultServerWriteTimeout   = 60 * time.Second
	defaultServerShutdown       = 10 * time.Second
	defaultDBHost               = "localhost"
	defaultDBPort               = 5432
	defaultDBName               = "docshare"
	defaultDBUser               = "docshare_app"
	defaultDBSSLMode            = "disable"
	defaultDBMaxConns           = 25
	defaultDBMinConns           = 5
	defaultBlobBackend          = BlobBackendS3
	defaultBlobBucket           = "docshare"
	defaultAWSRegion            = "us-east-1"
	defaultRedisDB              = 0
	defaultJWTExpiry            = 60 * time.Minute
	defaultMaxUploadSize        = int64(2 * 1024 * 1024 * 1024)
	defaultStorageQuota         = int64(15 * 1024 * 1024 * 1024)
	defaultTrashRetentionDays   = 30
	defaultTrashSweepInterval   = time.Duration(0)
	defaultShareVerificationTTL = 24 * time.Hour
	defaultSearchLimit          = 25
	defaultLogLevel             = "info"
	defaultForbiddenExtensions  = "exe,bat,cmd,com,scr,pif,msi,vbs,ps1,dll"
	listSeparator               = ","
	minJWTSecretLength          = 32
	minUniqueCharsInSecret      = 16
	minRepeatedCharThreshold    = 4
	maxRepeatedChars            = 2
	errPortRequiredFmt          = "PORT must be set"
	errDBPasswordRequiredFmt    = "DB_PASSWORD must be set"
	errBlobBackendFmt           = "BLOB_BACKEND must be one of s3, minio (got %q)"
	errBlobBucketRequiredFmt    = "BLOB_BUCKET must be set"
	errBlobEndpointRequiredFmt  = "BLOB_ENDPOINT must be set for the minio backend"
	errBlobCredentialsFmt       = "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the minio backend"
	errJWTSecretRequiredFmt     = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt    = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt   = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errRetentionDaysFmt         = "TRASH_RETENTION_DAYS must be positive (got %d)"
	errStorageQuotaFmt          = "STORAGE_QUOTA_BYTES must be positive (got %d)"
	errInvalidConfigurationFmt  = "invalid configuration: %w"
	errRequiredEnvNotSetFmt     = "required environment variable %s is not set"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	Redis    RedisConfig
	JWT      JWTConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// Secure marks share cookies Secure and enables HSTS. Turn it off only
	// for plain HTTP development setups.
	Secure          bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// BlobConfig selects and configures the object store holding file bytes.
// Endpoint is required for MinIO and optional for S3-compatible gateways.
type BlobConfig struct {
	Backend         string
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	PathStyle       bool
}

// RedisConfig is optional. An empty Addr disables Redis and the
// in-memory verification store plus the Postgres advisory lock are used.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type JWTConfig struct {
	Secret         string
	ExpiryDuration time.Duration
}

type AppConfig struct {
	MaxUploadSize        int64
	StorageQuota         int64
	TrashRetention       time.Duration
	TrashSweepInterval   time.Duration
	ShareVerificationTTL time.Duration
	SearchLimit          int
	LogLevel             string
	// Profiling mounts /debug/pprof behind authentication.
	Profiling bool
	// Uploads with these extensions are rejected.
	ForbiddenExtensions []string
	// When set, uploads must declare or be named as one of these media types.
	AllowedFileTypes []string
}

// Load reads the full server configuration. The JWT secret is required.
func Load() (*Config, error) {
	cfg := load()
	cfg.JWT = JWTConfig{
		Secret:         requireEnv(envJWTSecret),
		ExpiryDuration: getDurationEnv(envJWTExpiry, defaultJWTExpiry),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}
	if err := cfg.ValidateJWT(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

// LoadWithoutAuth reads configuration for jobs that never verify tokens.
func LoadWithoutAuth() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}
	return cfg, nil
}

func load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			Secure:          getBoolEnv(envServerSecure, true),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: requireEnv(envDBPassword),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		Blob: BlobConfig{
			Backend:         strings.ToLower(getEnv(envBlobBackend, defaultBlobBackend)),
			Bucket:          getEnv(envBlobBucket, defaultBlobBucket),
			Region:          getEnv(envAWSRegion, defaultAWSRegion),
			Endpoint:        getEnv(envBlobEndpoint, ""),
			AccessKeyID:     getEnv(envAWSAccessKeyID, ""),
			SecretAccessKey: getEnv(envAWSSecretAccessKey, ""),
			UseSSL:          getBoolEnv(envBlobUseSSL, true),
			PathStyle:       getBoolEnv(envBlobPathStyle, false),
		},
		Redis: RedisConfig{
			Addr:     getEnv(envRedisAddr, ""),
			Password: getEnv(envRedisPassword, ""),
			DB:       getIntEnv(envRedisDB, defaultRedisDB),
		},
		App: AppConfig{
			MaxUploadSize:        getInt64Env(envMaxUploadSize, defaultMaxUploadSize),
			StorageQuota:         getInt64Env(envStorageQuota, defaultStorageQuota),
			TrashRetention:       time.Duration(getIntEnv(envTrashRetentionDays, defaultTrashRetentionDays)) * 24 * time.Hour,
			TrashSweepInterval:   getDurationEnv(envTrashSweepInterval, defaultTrashSweepInterval),
			ShareVerificationTTL: getDurationEnv(envShareVerificationTTL, defaultShareVerificationTTL),
			SearchLimit:          getIntEnv(envSearchLimit, defaultSearchLimit),
			LogLevel:             getEnv(envLogLevel, defaultLogLevel),
			Profiling:            getBoolEnv(envEnableProfiling, false),
			ForbiddenExtensions:  getListEnv(envForbiddenExtensions, defaultForbiddenExtensions),
			AllowedFileTypes:     getListEnv(envAllowedFileTypes, ""),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	switch c.Blob.Backend {
	case BlobBackendS3:
	case BlobBackendMinIO:
		if c.Blob.Endpoint == "" {
			return fmt.Errorf(errBlobEndpointRequiredFmt)
		}
		if c.Blob.AccessKeyID == "" || c.Blob.SecretAccessKey == "" {
			return fmt.Errorf(errBlobCredentialsFmt)
		}
	default:
		return fmt.Errorf(errBlobBackendFmt, c.Blob.Backend)
	}

	if c.Blob.Bucket == "" {
		return fmt.Errorf(errBlobBucketRequiredFmt)
	}

	if c.App.TrashRetention <= 0 {
		return fmt.Errorf(errRetentionDaysFmt, int(c.App.TrashRetention/(24*time.Hour)))
	}

	if c.App.StorageQuota <= 0 {
		return fmt.Errorf(errStorageQuotaFmt, c.App.StorageQuota)
	}

	return nil
}

func (c *Config) ValidateJWT() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf(errRequiredEnvNotSetFmt, key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value. Set the variable to a lone
// comma to clear a non-empty default.
func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	items := make([]string, 0)
	for _, part := range strings.Split(raw, listSeparator) {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
