// Package config loads stickerd settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// Config is the resolved runtime configuration.
type Config struct {
	Host      string
	Port      int
	LogLevel  string
	LogFormat string // text or json

	DatabaseURL string
	RedisURL    string // Optional: enables the Redis sync lock

	Drive DriveConfig
	Sync  SyncConfig
	Image ImageConfig
	S3    S3Config

	WebhookURL   string
	WebhookToken string
	WebhookTTL   time.Duration

	AdminTokenHash string
	CORSOrigins    []string
}

// DriveConfig holds Drive credentials.
type DriveConfig struct {
	RootFolderID       string
	APIKey             string
	ServiceAccountFile string
}

// SyncConfig tunes reconciliation.
type SyncConfig struct {
	MinInterval    time.Duration
	Interval       time.Duration // scheduler period, 0 disables
	BatchSize      int
	BatchPause     time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	LockTTL        time.Duration
}

// ImageConfig tunes the image proxy.
type ImageConfig struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	FetchTimeout    time.Duration
}

// S3Config configures the optional image mirror.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Prefix       string
	UsePathStyle bool
}

// Enabled reports whether a mirror bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Keys are environment variable names; viper lowercases them internally.
var defaults = map[string]any{
	"HOST":                       "0.0.0.0",
	"PORT":                       8080,
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "text",
	"DATABASE_URL":               "",
	"REDIS_URL":                  "",
	"DRIVE_ROOT_FOLDER_ID":       "",
	"DRIVE_API_KEY":              "",
	"DRIVE_SERVICE_ACCOUNT_FILE": "",
	"SYNC_MIN_INTERVAL":          "30s",
	"SYNC_INTERVAL":              "0s",
	"SYNC_BATCH_SIZE":            10,
	"SYNC_BATCH_PAUSE":           "200ms",
	"SYNC_RETRY_ATTEMPTS":        3,
	"SYNC_RETRY_BASE_DELAY":      "500ms",
	"SYNC_LOCK_TTL":              "15m",
	"IMAGE_CACHE_TTL":            "1h",
	"IMAGE_CACHE_MAX_ENTRIES":    500,
	"IMAGE_FETCH_TIMEOUT":        "20s",
	"WEBHOOK_URL":                "",
	"WEBHOOK_TOKEN":              "",
	"WEBHOOK_TTL":                "24h",
	"S3_BUCKET":                  "",
	"S3_REGION":                  "us-east-1",
	"S3_ENDPOINT":                "",
	"S3_ACCESS_KEY":              "",
	"S3_SECRET_KEY":              "",
	"S3_PREFIX":                  "",
	"S3_USE_PATH_STYLE":          false,
	"ADMIN_TOKEN_HASH":           "",
	"CORS_ORIGINS":               "",
}

// Load reads configuration from the environment, layered over configFile
// when one is given. Environment variables always win.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Host:        v.GetString("HOST"),
		Port:        v.GetInt("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFormat:   v.GetString("LOG_FORMAT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),
		Drive: DriveConfig{
			RootFolderID:       v.GetString("DRIVE_ROOT_FOLDER_ID"),
			APIKey:             v.GetString("DRIVE_API_KEY"),
			ServiceAccountFile: v.GetString("DRIVE_SERVICE_ACCOUNT_FILE"),
		},
		Sync: SyncConfig{
			MinInterval:    v.GetDuration("SYNC_MIN_INTERVAL"),
			Interval:       v.GetDuration("SYNC_INTERVAL"),
			BatchSize:      v.GetInt("SYNC_BATCH_SIZE"),
			BatchPause:     v.GetDuration("SYNC_BATCH_PAUSE"),
			RetryAttempts:  v.GetInt("SYNC_RETRY_ATTEMPTS"),
			RetryBaseDelay: v.GetDuration("SYNC_RETRY_BASE_DELAY"),
			LockTTL:        v.GetDuration("SYNC_LOCK_TTL"),
		},
		Image: ImageConfig{
			CacheTTL:        v.GetDuration("IMAGE_CACHE_TTL"),
			CacheMaxEntries: v.GetInt("IMAGE_CACHE_MAX_ENTRIES"),
			FetchTimeout:    v.GetDuration("IMAGE_FETCH_TIMEOUT"),
		},
		S3: S3Config{
			Bucket:       v.GetString("S3_BUCKET"),
			Region:       v.GetString("S3_REGION"),
			Endpoint:     v.GetString("S3_ENDPOINT"),
			AccessKey:    v.GetString("S3_ACCESS_KEY"),
			SecretKey:    v.GetString("S3_SECRET_KEY"),
			Prefix:       v.GetString("S3_PREFIX"),
			UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
		},
		WebhookURL:     v.GetString("WEBHOOK_URL"),
		WebhookToken:   v.GetString("WEBHOOK_TOKEN"),
		WebhookTTL:     v.GetDuration("WEBHOOK_TTL"),
		AdminTokenHash: v.GetString("ADMIN_TOKEN_HASH"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.Sync.MinInterval < 0 || c.Sync.Interval < 0 {
		errs = append(errs, errors.New("sync intervals must not be negative"))
	}
	if c.Sync.BatchSize < 0 || c.Image.CacheMaxEntries < 0 {
		errs = append(errs, errors.New("sizes must not be negative"))
	}
	if c.Image.FetchTimeout <= 0 {
		errs = append(errs, errors.New("IMAGE_FETCH_TIMEOUT must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// RequireDatabase reports a configuration error when no DSN is set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL: %w", domain.ErrNotConfigured)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
