package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"sql-helper/internal/logger"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Quota    QuotaConfig
	Auth     AuthConfig
	AI       AIConfig
	Execute  ExecuteConfig
}

type AppConfig struct {
	Port            string        `envconfig:"PORT" default:"5050"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile         string        `envconfig:"LOG_FILE"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	SlowThreshold   time.Duration `envconfig:"DB_SLOW_THRESHOLD" default:"1s"`
}

type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL   time.Duration `envconfig:"JWT_TOKEN_TTL" default:"168h"`
	CookieName string        `envconfig:"AUTH_COOKIE_NAME" default:"token"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`
	// CookieSecure should be on wherever the API is served over TLS.
	CookieSecure bool `envconfig:"AUTH_COOKIE_SECURE" default:"false"`
}

type AIConfig struct {
	OpenAIKey  string        `envconfig:"OPENAI_API_KEY"`
	BaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	Timeout    time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	MaxRetries int           `envconfig:"OPENAI_MAX_RETRIES" default:"2"`
}

// ExecuteConfig points the SELECT runner at a target database. An empty URL
// reuses DATABASE_URL.
type ExecuteConfig struct {
	URL     string        `envconfig:"EXECUTE_DATABASE_URL"`
	MaxRows int           `envconfig:"EXECUTE_MAX_ROWS" default:"500"`
	Timeout time.Duration `envconfig:"EXECUTE_TIMEOUT" default:"10s"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Logger.Warnf("no .env file loaded: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Quota.DefaultDailyLimit <= 0 {
		return fmt.Errorf("config: DEFAULT_DAILY_TOKEN_LIMIT must be positive, got %d", c.Quota.DefaultDailyLimit)
	}
	if c.Cache.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}
	if _, err := c.Quota.Location(); err != nil {
		return fmt.Errorf("config: USAGE_TIMEZONE: %w", err)
	}
	if c.Execute.URL == "" {
		c.Execute.URL = c.Database.URL
	}
	return nil
}
