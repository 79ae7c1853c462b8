package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		PublicBaseURL string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		ReadTimeout   time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout  time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Driver          string        `yaml:"driver" env:"DB_DRIVER"`
		Host            string        `yaml:"host" env:"DB_HOST"`
		Port            string        `yaml:"port" env:"DB_PORT"`
		User            string        `yaml:"user" env:"DB_USER"`
		Password        string        `yaml:"password" env:"DB_PASSWORD"`
		DBName          string        `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		RunMigrations   bool          `yaml:"run_migrations" env:"DB_RUN_MIGRATIONS"`
	} `yaml:"database"`

	JWT struct {
		Secret                string        `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration time.Duration `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string        `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Email struct {
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"EMAIL_FROM_ADDRESS"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
		SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SMTPUseTLS     bool   `yaml:"smtp_use_tls" env:"SMTP_USE_TLS"`
		AppBaseURL     string `yaml:"app_base_url" env:"EMAIL_APP_BASE_URL"`
	} `yaml:"email"`

	Video struct {
		Provider   string        `yaml:"provider" env:"VIDEO_PROVIDER"`
		APIBaseURL string        `yaml:"api_base_url" env:"VIDEO_API_BASE_URL"`
		APIKey     string        `yaml:"api_key" env:"VIDEO_API_KEY"`
		RoomExpiry time.Duration `yaml:"room_expiry" env:"VIDEO_ROOM_EXPIRY"`
	} `yaml:"video"`

	Scheduler struct {
		Enabled         bool          `yaml:"enabled" env:"SCHEDULER_ENABLED"`
		DispatchSpec    string        `yaml:"dispatch_spec" env:"SCHEDULER_DISPATCH_SPEC"`
		BatchSize       int           `yaml:"batch_size" env:"SCHEDULER_BATCH_SIZE"`
		SweepSpec       string        `yaml:"sweep_spec" env:"SCHEDULER_SWEEP_SPEC"`
		SignalRetention time.Duration `yaml:"signal_retention" env:"SCHEDULER_SIGNAL_RETENTION"`
		PeerTimeout     time.Duration `yaml:"peer_timeout" env:"SCHEDULER_PEER_TIMEOUT"`
	} `yaml:"scheduler"`

	Storage struct {
		Path        string `yaml:"path" env:"STORAGE_PATH"`
		MaxUploadMB int    `yaml:"max_upload_mb" env:"STORAGE_MAX_UPLOAD_MB"`
	} `yaml:"storage"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
		BaseDelay   time.Duration `yaml:"base_delay" env:"RETRY_BASE_DELAY"`
		MaxDelay    time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY"`
		Jitter      float64       `yaml:"jitter" env:"RETRY_JITTER"`
		// Patterns are extra error substrings treated as transient
		Patterns []string `yaml:"patterns" env:"RETRY_PATTERNS"`
	} `yaml:"retry"`

	RateLimit struct {
		Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		RequestsPerSecond int  `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
		Burst             int  `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`
}

// LoadConfig loads configuration from an optional .env file, an optional YAML
// file and environment variables, in that order of precedence (env wins).
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	config := &Config{}
	setDefaults(config)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			file, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Server.ReadTimeout = 10 * time.Second
	config.Server.WriteTimeout = 15 * time.Second

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "formatrack"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = time.Hour
	config.Database.RunMigrations = true

	config.JWT.AccessTokenExpiration = time.Hour
	config.JWT.Issuer = "formatrack.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Email.Provider = "log"
	config.Email.FromName = "FormaTrack"
	config.Email.FromEmail = "no-reply@formatrack.app"
	config.Email.SMTPPort = 587
	config.Email.AppBaseURL = "http://localhost:5173"

	config.Video.Provider = "none"
	config.Video.APIBaseURL = "https://api.daily.co/v1"
	config.Video.RoomExpiry = 4 * time.Hour

	config.Scheduler.Enabled = true
	config.Scheduler.DispatchSpec = "@every 1m"
	config.Scheduler.BatchSize = 50
	config.Scheduler.SweepSpec = "@every 5m"
	config.Scheduler.SignalRetention = time.Hour
	config.Scheduler.PeerTimeout = 2 * time.Minute

	config.Storage.Path = "./uploads"
	config.Storage.MaxUploadMB = 10

	config.Retry.MaxAttempts = 3
	config.Retry.BaseDelay = 500 * time.Millisecond
	config.Retry.MaxDelay = 5 * time.Second
	config.Retry.Jitter = 0.3

	config.RateLimit.Enabled = true
	config.RateLimit.RequestsPerSecond = 20
	config.RateLimit.Burst = 40

	config.Redis.Addr = "localhost:6379"

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return errors.New("database driver is required")
	}

	if config.Database.Host == "" {
		return errors.New("database host is required")
	}

	if config.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}

	durations := map[string]time.Duration{
		"server read timeout":         config.Server.ReadTimeout,
		"server write timeout":        config.Server.WriteTimeout,
		"database conn max lifetime":  config.Database.ConnMaxLifetime,
		"JWT access token expiration": config.JWT.AccessTokenExpiration,
		"video room expiry":           config.Video.RoomExpiry,
		"scheduler signal retention":  config.Scheduler.SignalRetention,
		"scheduler peer timeout":      config.Scheduler.PeerTimeout,
		"retry base delay":            config.Retry.BaseDelay,
		"retry max delay":             config.Retry.MaxDelay,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	if config.Retry.MaxDelay < config.Retry.BaseDelay {
		return errors.New("retry max delay must not be shorter than base delay")
	}

	switch strings.ToLower(config.Email.Provider) {
	case "log", "smtp":
	case "sendgrid":
		if config.Email.SendGridAPIKey == "" {
			return errors.New("sendgrid api key is required when email provider is sendgrid")
		}
	default:
		return fmt.Errorf("unknown email provider %q", config.Email.Provider)
	}

	switch strings.ToLower(config.Video.Provider) {
	case "none":
	case "daily":
		if config.Video.APIKey == "" {
			return errors.New("video api key is required when video provider is daily")
		}
	default:
		return fmt.Errorf("unknown video provider %q", config.Video.Provider)
	}

	if _, err := cron.ParseStandard(config.Scheduler.DispatchSpec); err != nil {
		return fmt.Errorf("invalid dispatcher schedule: %w", err)
	}
	if _, err := cron.ParseStandard(config.Scheduler.SweepSpec); err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}

	if config.Scheduler.BatchSize <= 0 {
		return errors.New("scheduler batch size must be positive")
	}
	if config.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if config.Storage.MaxUploadMB <= 0 {
		return errors.New("storage max upload size must be positive")
	}
	if config.Retry.MaxAttempts <= 0 {
		return errors.New("retry max attempts must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// MaxUploadBytes is the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}
