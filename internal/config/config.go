package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort          string
	ServerReadTimeout   time.Duration
	ServerWriteTimeout  time.Duration
	ServerIdleTimeout   time.Duration
	RequestTimeout      time.Duration
	DatabaseURL         string
	DBMaxConns          int32
	DBMinConns          int32
	StorageRoot         string
	ThumbnailRoot       string
	MaxUploadSize       int64
	JWTSecret           string
	JWTAccessTTL        time.Duration
	JWTRefreshTTL       time.Duration
	CORSOrigins         []string
	RateLimitRPM        int
	AuthRateLimitRPM    int
	DefaultStorageQuota int64
	DefaultTokenGrant   int64
	BillingPeriod       time.Duration
	LowBalanceThreshold int64
	LogLevel            string
}

// ClientConfig configures the workspace client used by notesctl.
type ClientConfig struct {
	APIURL              string
	Timeout             time.Duration
	RetryAttempts       int
	RetryInitialWait    time.Duration
	UploadConcurrency   int
	LowBalanceThreshold int64
	UsageWindowDays     int
	SessionFile         string
	LogLevel            string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:          int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:          int32(getInt("DB_MIN_CONNS", 1)),
		StorageRoot:         getEnv("STORAGE_ROOT", "./data/documents"),
		ThumbnailRoot:       getEnv("THUMBNAIL_ROOT", "./data/thumbnails"),
		MaxUploadSize:       getInt64("MAX_UPLOAD_SIZE", 104857600),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:        getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:       getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:    getInt("AUTH_RATE_LIMIT_RPM", 10),
		DefaultStorageQuota: getInt64("DEFAULT_STORAGE_QUOTA", 5368709120),
		DefaultTokenGrant:   getInt64("DEFAULT_TOKEN_GRANT", 100000),
		BillingPeriod:       getDuration("BILLING_PERIOD", 720*time.Hour),
		LowBalanceThreshold: getInt64("LOW_BALANCE_THRESHOLD", 1000),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.StorageRoot == "" {
		return fmt.Errorf("STORAGE_ROOT cannot be empty")
	}

	if strings.TrimSpace(c.ThumbnailRoot) == "" {
		return fmt.Errorf("THUMBNAIL_ROOT cannot be empty")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	if c.DefaultTokenGrant < 0 {
		return fmt.Errorf("DEFAULT_TOKEN_GRANT cannot be negative")
	}

	if c.BillingPeriod <= 0 {
		return fmt.Errorf("BILLING_PERIOD must be positive")
	}

	return nil
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		APIURL:              strings.TrimRight(getEnv("NOTES_API_URL", "http://localhost:8080"), "/"),
		Timeout:             getDuration("CLIENT_TIMEOUT", 30*time.Second),
		RetryAttempts:       getInt("RETRY_ATTEMPTS", 3),
		RetryInitialWait:    getDuration("RETRY_INITIAL_WAIT", 200*time.Millisecond),
		UploadConcurrency:   getInt("UPLOAD_CONCURRENCY", 3),
		LowBalanceThreshold: getInt64("LOW_BALANCE_THRESHOLD", 1000),
		UsageWindowDays:     getInt("USAGE_WINDOW_DAYS", 30),
		SessionFile:         getEnv("SESSION_FILE", defaultSessionFile()),
		LogLevel:            getEnv("LOG_LEVEL", "warn"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("NOTES_API_URL cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("CLIENT_TIMEOUT must be positive")
	}

	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}

	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}

	if c.UsageWindowDays < 1 {
		return fmt.Errorf("USAGE_WINDOW_DAYS must be at least 1")
	}

	if strings.TrimSpace(c.SessionFile) == "" {
		return fmt.Errorf("SESSION_FILE cannot be empty")
	}

	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./.notesctl/session.yaml"
	}

	return dir + "/notesctl/session.yaml"
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
