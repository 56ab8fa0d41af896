package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/doctrans/pkg/icron"
	"github.com/MimeLyc/doctrans/pkg/log"
)

// Config holds all application configuration.
//
// Environment Variables:
// DeepL:
// - DEEPL_AUTH_KEY: API key (required)
// - DEEPL_API_URL: API endpoint (default: derived from the key, ":fx" keys use the free host)
// - DEEPL_TIMEOUT: request timeout in seconds (default: 60)
//
// Translate:
// - TRANSLATE_TARGET_LANGUAGE: default target language (default: en-US)
// - TRANSLATE_POLL_INTERVAL_MS: delay between status checks (default: 2000)
// - TRANSLATE_STALE_AFTER: checkpoint staleness window (default: 2h)
// - TRANSLATE_MAX_ATTEMPTS_CEILING: hard cap on the poll budget (default: 3600)
//
// Storage:
// - DB_PATH: SQLite database (default: /app/data/doctrans.db)
// - ARCHIVE_BACKEND: local or s3 (default: local)
// - ARCHIVE_DIR: local archive directory (default: /app/data/archive)
// - ARCHIVE_S3_BUCKET, ARCHIVE_S3_REGION, ARCHIVE_S3_PREFIX
//
// Maintenance:
// - HISTORY_RETENTION_DAYS: 0 disables pruning (default: 90)
// - MAINTENANCE_CRON: five-field cron expression (default: 0 3 * * *)
//
// HTTP:
// - HTTP_ADDR: listen address (default: :8080)
// - UI_ENABLED: serve the web UI (default: true)
// - UI_STATIC_DIR: web UI build directory (default: /app/web)
// - LOG_LEVEL: debug, info, warn, error (default: info)
type Config struct {
	DeepL       DeepLConfig       `json:"deepl"`
	Translate   TranslateConfig   `json:"translate"`
	Storage     StorageConfig     `json:"storage"`
	Maintenance MaintenanceConfig `json:"maintenance"`
	HTTP        HTTPConfig        `json:"http"`
	LogLevel    string            `json:"log_level"`
}

type DeepLConfig struct {
	AuthKey string `json:"-"`
	APIURL  string `json:"api_url"`
	Timeout int    `json:"timeout"`
}

type TranslateConfig struct {
	TargetLanguage     language.Tag  `json:"target_language"`
	PollInterval       time.Duration `json:"poll_interval"`
	StaleAfter         time.Duration `json:"stale_after"`
	MaxAttemptsCeiling int           `json:"max_attempts_ceiling"`
}

const (
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

type StorageConfig struct {
	DBPath         string `json:"db_path"`
	ArchiveBackend string `json:"archive_backend"`
	ArchiveDir     string `json:"archive_dir"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3Prefix       string `json:"s3_prefix"`
}

type MaintenanceConfig struct {
	HistoryRetentionDays int    `json:"history_retention_days"`
	CronExpr             string `json:"cron_expr"`
}

// Retention is the history and archive retention window. Zero disables pruning.
func (c MaintenanceConfig) Retention() time.Duration {
	if c.HistoryRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIEnabled   bool   `json:"ui_enabled"`
	UIStaticDir string `json:"ui_static_dir"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		DeepL: DeepLConfig{
			AuthKey: getEnvString("DEEPL_AUTH_KEY", ""),
			APIURL:  getEnvString("DEEPL_API_URL", ""),
			Timeout: getEnvInt("DEEPL_TIMEOUT", 60),
		},
		Translate: TranslateConfig{
			PollInterval:       time.Duration(getEnvInt("TRANSLATE_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			StaleAfter:         getEnvDuration("TRANSLATE_STALE_AFTER", 2*time.Hour),
			MaxAttemptsCeiling: getEnvInt("TRANSLATE_MAX_ATTEMPTS_CEILING", 3600),
		},
		Storage: StorageConfig{
			DBPath:         getEnvString("DB_PATH", "/app/data/doctrans.db"),
			ArchiveBackend: strings.ToLower(getEnvString("ARCHIVE_BACKEND", ArchiveLocal)),
			ArchiveDir:     getEnvString("ARCHIVE_DIR", "/app/data/archive"),
			S3Bucket:       getEnvString("ARCHIVE_S3_BUCKET", ""),
			S3Region:       getEnvString("ARCHIVE_S3_REGION", "us-east-1"),
			S3Prefix:       getEnvString("ARCHIVE_S3_PREFIX", "translations"),
		},
		Maintenance: MaintenanceConfig{
			HistoryRetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 90),
			CronExpr:             getEnvString("MAINTENANCE_CRON", "0 3 * * *"),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIEnabled:   getEnvBool("UI_ENABLED", true),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "/app/web"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	target, err := language.Parse(getEnvString("TRANSLATE_TARGET_LANGUAGE", "en-US"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_TARGET_LANGUAGE: %w", err)
	}
	config.Translate.TargetLanguage = target

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info("Config: target=%s poll=%s stale_after=%s archive=%s db=%s http=%s",
		config.Translate.TargetLanguage, config.Translate.PollInterval, config.Translate.StaleAfter,
		config.Storage.ArchiveBackend, config.Storage.DBPath, config.HTTP.Addr)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.DeepL.AuthKey) == "" {
		return fmt.Errorf("DEEPL_AUTH_KEY is required")
	}
	if c.DeepL.Timeout <= 0 {
		return fmt.Errorf("DEEPL_TIMEOUT must be positive, got %d", c.DeepL.Timeout)
	}
	if c.Translate.PollInterval <= 0 {
		return fmt.Errorf("TRANSLATE_POLL_INTERVAL_MS must be positive")
	}
	if c.Translate.StaleAfter <= 0 {
		return fmt.Errorf("TRANSLATE_STALE_AFTER must be positive")
	}
	if c.Translate.MaxAttemptsCeiling <= 0 {
		return fmt.Errorf("TRANSLATE_MAX_ATTEMPTS_CEILING must be positive")
	}
	switch c.Storage.ArchiveBackend {
	case ArchiveLocal:
		if c.Storage.ArchiveDir == "" {
			return fmt.Errorf("ARCHIVE_DIR is required for the local archive")
		}
	case ArchiveS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("ARCHIVE_S3_BUCKET is required for the s3 archive")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q (want local or s3)", c.Storage.ArchiveBackend)
	}
	if _, err := icron.Parse(c.Maintenance.CronExpr); err != nil {
		return fmt.Errorf("MAINTENANCE_CRON: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90m") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
