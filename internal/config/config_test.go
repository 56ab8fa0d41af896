package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("DEEPL_AUTH_KEY", "test-key")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DeepL.APIURL)
	assert.Equal(t, 60, cfg.DeepL.Timeout)
	assert.Equal(t, language.AmericanEnglish, cfg.Translate.TargetLanguage)
	assert.Equal(t, 2*time.Second, cfg.Translate.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.Translate.StaleAfter)
	assert.Equal(t, 3600, cfg.Translate.MaxAttemptsCeiling)
	assert.Equal(t, "/app/data/doctrans.db", cfg.Storage.DBPath)
	assert.Equal(t, ArchiveLocal, cfg.Storage.ArchiveBackend)
	assert.Equal(t, "/app/data/archive", cfg.Storage.ArchiveDir)
	assert.Equal(t, 90*24*time.Hour, cfg.Maintenance.Retention())
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.CronExpr)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "/app/web", cfg.HTTP.UIStaticDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("DEEPL_AUTH_KEY", "test-key:fx")
	t.Setenv("TRANSLATE_TARGET_LANGUAGE", "de")
	t.Setenv("TRANSLATE_POLL_INTERVAL_MS", "500")
	t.Setenv("TRANSLATE_STALE_AFTER", "90m")
	t.Setenv("ARCHIVE_BACKEND", "S3")
	t.Setenv("ARCHIVE_S3_BUCKET", "translations")
	t.Setenv("HISTORY_RETENTION_DAYS", "0")
	t.Setenv("UI_ENABLED", "false")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, language.German, cfg.Translate.TargetLanguage)
	assert.Equal(t, 500*time.Millisecond, cfg.Translate.PollInterval)
	assert.Equal(t, 90*time.Minute, cfg.Translate.StaleAfter)
	assert.Equal(t, ArchiveS3, cfg.Storage.ArchiveBackend)
	assert.Zero(t, cfg.Maintenance.Retention())
	assert.False(t, cfg.HTTP.UIEnabled)
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing key", map[string]string{"DEEPL_AUTH_KEY": ""}},
		{"bad language", map[string]string{"TRANSLATE_TARGET_LANGUAGE": "not a language"}},
		{"unknown archive", map[string]string{"ARCHIVE_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"ARCHIVE_BACKEND": "s3"}},
		{"bad cron", map[string]string{"MAINTENANCE_CRON": "every night"}},
		{"zero ceiling", map[string]string{"TRANSLATE_MAX_ATTEMPTS_CEILING": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEEPL_AUTH_KEY", "test-key")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestNewFromEnv_OptionsApplyBeforeValidation(t *testing.T) {
	t.Setenv("DEEPL_AUTH_KEY", "")

	cfg, err := NewFromEnv(func(c *Config) { c.DeepL.AuthKey = "from-option" })
	require.NoError(t, err)
	assert.Equal(t, "from-option", cfg.DeepL.AuthKey)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DURATION", "45")
	assert.Equal(t, 45*time.Second, getEnvDuration("X_DURATION", time.Minute))

	t.Setenv("X_DURATION", "bogus")
	assert.Equal(t, time.Minute, getEnvDuration("X_DURATION", time.Minute))
}
