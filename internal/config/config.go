package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Line   LineConfig
	DB     DBConfig
	News   NewsConfig
	Push   PushConfig
	Server ServerConfig
	Log    LogConfig
}

// LineConfig holds LINE Messaging API credentials
type LineConfig struct {
	ChannelAccessToken string `envconfig:"CHANNEL_ACCESS_TOKEN" required:"true"`
	ChannelSecret      string `envconfig:"CHANNEL_SECRET" required:"true"`
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	URL      string `envconfig:"DATABASE_URL"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// NewsConfig holds the news feed lookup configuration
type NewsConfig struct {
	FeedURL     string        `envconfig:"NEWS_FEED_URL" default:"https://news.google.com/rss/search"`
	Language    string        `envconfig:"NEWS_LANGUAGE" default:"zh-TW"`
	Region      string        `envconfig:"NEWS_REGION" default:"TW"`
	Edition     string        `envconfig:"NEWS_EDITION" default:"TW:zh-Hant"`
	Timeout     time.Duration `envconfig:"NEWS_TIMEOUT" default:"5s"`
	Limit       int           `envconfig:"NEWS_LIMIT" default:"3"`
	Concurrency int           `envconfig:"NEWS_CONCURRENCY" default:"4"`
	RateLimit   float64       `envconfig:"NEWS_RATE_LIMIT" default:"5"`
	UserAgent   string        `envconfig:"NEWS_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
}

// PushConfig holds scheduled push configuration
type PushConfig struct {
	Enabled   bool          `envconfig:"PUSH_ENABLED" default:"true"`
	Interval  time.Duration `envconfig:"PUSH_INTERVAL" default:"60s"`
	Timezone  string        `envconfig:"PUSH_TIMEZONE" default:"Local"`
	RateLimit float64       `envconfig:"PUSH_RATE_LIMIT" default:"10"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"PORT" default:"8000"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Location resolves the configured push timezone
func (c *PushConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid PUSH_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads an optional .env file and then loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is fine: production reads the real environment.
	_ = godotenv.Load()

	var cfg Config

	if err := envconfig.Process("", &cfg.Line); err != nil {
		return nil, fmt.Errorf("failed to load line config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.News); err != nil {
		return nil, fmt.Errorf("failed to load news config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Push); err != nil {
		return nil, fmt.Errorf("failed to load push config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Line,
		validation.Field(&c.Line.ChannelAccessToken, validation.Required.Error("CHANNEL_ACCESS_TOKEN is required")),
		validation.Field(&c.Line.ChannelSecret, validation.Required.Error("CHANNEL_SECRET is required")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.DB,
		validation.Field(&c.DB.Driver, validation.In(DriverPostgres, DriverMySQL, DriverSQLite, DriverMemory).
			Error("DB_DRIVER must be one of postgres, mysql, sqlite, memory")),
		validation.Field(&c.DB.URL, validation.When(c.DB.Driver != DriverMemory,
			validation.Required.Error("DATABASE_URL is required"))),
		validation.Field(&c.DB.MaxConns, validation.Required.Error("DB_MAX_CONNS must be positive"), validation.Min(1).Error("DB_MAX_CONNS must be positive")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.News,
		validation.Field(&c.News.FeedURL, validation.Required.Error("NEWS_FEED_URL is required")),
		validation.Field(&c.News.Timeout, validation.Required.Error("NEWS_TIMEOUT must be positive"), validation.Min(time.Millisecond).Error("NEWS_TIMEOUT must be positive")),
		validation.Field(&c.News.Limit, validation.Required.Error("NEWS_LIMIT must be positive"), validation.Min(1).Error("NEWS_LIMIT must be positive")),
		validation.Field(&c.News.Concurrency, validation.Required.Error("NEWS_CONCURRENCY must be positive"), validation.Min(1).Error("NEWS_CONCURRENCY must be positive")),
		validation.Field(&c.News.RateLimit, validation.Required.Error("NEWS_RATE_LIMIT must be positive"), validation.Min(0.0).Exclusive().Error("NEWS_RATE_LIMIT must be positive")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Push,
		validation.Field(&c.Push.Interval, validation.Required.Error("PUSH_INTERVAL must be at least 1s"), validation.Min(time.Second).Error("PUSH_INTERVAL must be at least 1s")),
		validation.Field(&c.Push.RateLimit, validation.Required.Error("PUSH_RATE_LIMIT must be positive"), validation.Min(0.0).Exclusive().Error("PUSH_RATE_LIMIT must be positive")),
	); err != nil {
		return err
	}
	if _, err := c.Push.Location(); err != nil {
		return err
	}

	return validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port,
			validation.Required.Error("PORT must be between 1 and 65535"),
			validation.Min(1).Error("PORT must be between 1 and 65535"),
			validation.Max(65535).Error("PORT must be between 1 and 65535")),
	)
}
