package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the mediaforge server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Media     MediaConfig
	Studio    StudioConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

// MediaConfig selects and configures the generation backend.
type MediaConfig struct {
	Backend         string
	APIKey          string
	BaseURL         string
	VideoModel      string
	ImageModel      string
	EditModel       string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	PollTimeout     time.Duration // 0 picks the poller default, negative disables the cap
	MaxReferenceDim int
	MaxArtifactSize int64 // largest video the REST backend will download
}

type StudioConfig struct {
	SessionTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute    int
	// GenerationsPerMinute caps each tenant's generation requests per kind; 0 disables it.
	GenerationsPerMinute int
}

var validBackends = map[string]bool{
	"gemini": true,
	"sdk":    true,
	"fake":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("MEDIAFORGE_PORT", 8080),
			Env:             envString("MEDIAFORGE_ENV", "development"),
			MaxBodyBytes:    int64(envInt("MEDIAFORGE_MAX_BODY_BYTES", 32<<20)),
			ShutdownTimeout: envDuration("MEDIAFORGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Media: MediaConfig{
			Backend:         envString("MEDIA_BACKEND", "gemini"),
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			BaseURL:         os.Getenv("GEMINI_BASE_URL"),
			VideoModel:      envString("MEDIA_VIDEO_MODEL", "veo-2.0-generate-001"),
			ImageModel:      envString("MEDIA_IMAGE_MODEL", "imagen-3.0-generate-002"),
			EditModel:       envString("MEDIA_EDIT_MODEL", "gemini-2.5-flash-image-preview"),
			RequestTimeout:  envDurationSecs("MEDIA_REQUEST_TIMEOUT_SECS", 120*time.Second),
			PollInterval:    envDuration("MEDIA_POLL_INTERVAL", 10*time.Second),
			PollTimeout:     envDuration("MEDIA_POLL_TIMEOUT", 30*time.Minute),
			MaxReferenceDim: envInt("MEDIA_MAX_REFERENCE_DIM", 1536),
			MaxArtifactSize: int64(envInt("MEDIA_MAX_ARTIFACT_BYTES", 512<<20)),
		},
		Studio: StudioConfig{
			SessionTTL: envDuration("STUDIO_SESSION_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:    envInt("RATE_LIMIT_RPM", 60),
			GenerationsPerMinute: envInt("RATE_LIMIT_GENERATIONS_RPM", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validBackends[c.Media.Backend] {
		return fmt.Errorf("MEDIA_BACKEND must be one of gemini, sdk, fake; got %q", c.Media.Backend)
	}
	if c.Media.Backend != "fake" && c.Media.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when MEDIA_BACKEND is %s", c.Media.Backend)
	}
	if c.Media.BaseURL != "" && !strings.HasPrefix(c.Media.BaseURL, "http://") && !strings.HasPrefix(c.Media.BaseURL, "https://") {
		return fmt.Errorf("GEMINI_BASE_URL must start with http:// or https://, got %q", c.Media.BaseURL)
	}

	if c.Media.PollInterval <= 0 {
		return fmt.Errorf("MEDIA_POLL_INTERVAL must be positive, got %s", c.Media.PollInterval)
	}
	if c.Media.PollTimeout > 0 && c.Media.PollTimeout < c.Media.PollInterval {
		return fmt.Errorf("MEDIA_POLL_TIMEOUT (%s) must not be shorter than MEDIA_POLL_INTERVAL (%s)", c.Media.PollTimeout, c.Media.PollInterval)
	}
	if c.Media.MaxArtifactSize <= 0 {
		return fmt.Errorf("MEDIA_MAX_ARTIFACT_BYTES must be positive, got %d", c.Media.MaxArtifactSize)
	}
	if c.Media.MaxReferenceDim < 0 {
		return fmt.Errorf("MEDIA_MAX_REFERENCE_DIM must not be negative, got %d", c.Media.MaxReferenceDim)
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.GenerationsPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_GENERATIONS_RPM must not be negative, got %d", c.RateLimit.GenerationsPerMinute)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
