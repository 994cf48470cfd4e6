package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/learner/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:                    ":8080",
		DBDriver:                "sqlite3",
		DBDSN:                   "file:test.db",
		LogLevel:                "INFO",
		Timezone:                "UTC",
		DefaultSessionMinutes:   30,
		AbandonAppliesReviews:   true,
		ProgressMaxRetries:      5,
		ReviewDefaultEase:       2.5,
		ReviewMinEase:           1.3,
		ReviewPassThreshold:     0.6,
		ReviewEaseBonus:         0.1,
		ReviewEaseQualityFactor: 0.8,
		ReviewFailPenalty:       0.2,
		ReviewMaxIntervalDays:   180,
		ReviewProficiencyWeight: 0.3,
		DigestCron:              "0 9 * * *",
		DigestWorkerCount:       1,
		DigestQueueSize:         8,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_SingleField(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError string
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }, "ADDR cannot be empty"},
		{"unknown driver", func(c *config.Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"empty dsn", func(c *config.Config) { c.DBDSN = " " }, "DB_DSN cannot be empty"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "LOUD" }, "LOG_LEVEL"},
		{"bad timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"session too short", func(c *config.Config) { c.DefaultSessionMinutes = 4 }, "DEFAULT_SESSION_MINUTES"},
		{"session too long", func(c *config.Config) { c.DefaultSessionMinutes = 481 }, "DEFAULT_SESSION_MINUTES"},
		{"no retries", func(c *config.Config) { c.ProgressMaxRetries = 0 }, "PROGRESS_MAX_RETRIES"},
		{"min ease below one", func(c *config.Config) { c.ReviewMinEase = 0.5 }, "REVIEW_MIN_EASE"},
		{"default below min", func(c *config.Config) { c.ReviewDefaultEase = 1.2 }, "REVIEW_DEFAULT_EASE"},
		{"threshold zero", func(c *config.Config) { c.ReviewPassThreshold = 0 }, "REVIEW_PASS_THRESHOLD"},
		{"negative penalty", func(c *config.Config) { c.ReviewFailPenalty = -0.1 }, "REVIEW_FAIL_PENALTY"},
		{"zero cap", func(c *config.Config) { c.ReviewMaxIntervalDays = 0 }, "REVIEW_MAX_INTERVAL_DAYS"},
		{"weight above one", func(c *config.Config) { c.ReviewProficiencyWeight = 1.5 }, "REVIEW_PROFICIENCY_WEIGHT"},
		{"bad cron", func(c *config.Config) { c.DigestCron = "every day" }, "DIGEST_CRON"},
		{"no digest workers", func(c *config.Config) { c.DigestWorkerCount = 0 }, "DIGEST_WORKER_COUNT"},
		{"no digest queue", func(c *config.Config) { c.DigestQueueSize = 0 }, "DIGEST_QUEUE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestValidate_LowercaseLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "debug"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""
	cfg.DBDSN = ""
	cfg.LogLevel = "INVALID"
	cfg.DigestWorkerCount = 0

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "ADDR cannot be empty")
	assert.Contains(t, errStr, "DB_DSN cannot be empty")
	assert.Contains(t, errStr, "LOG_LEVEL")
	assert.Contains(t, errStr, "DIGEST_WORKER_COUNT")
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_DSN", "custom.db")
	t.Setenv("REVIEW_MAX_INTERVAL_DAYS", "90")
	t.Setenv("ABANDON_APPLIES_REVIEWS", "false")
	t.Setenv("REVIEW_PASS_THRESHOLD", "not-a-number")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "custom.db", cfg.DBDSN)
	assert.Equal(t, 90, cfg.ReviewMaxIntervalDays)
	assert.False(t, cfg.AbandonAppliesReviews)
	assert.Equal(t, 0.6, cfg.ReviewPassThreshold)
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Europe/Berlin"
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())

	cfg.Timezone = "nowhere"
	assert.Equal(t, "UTC", cfg.Location().String())
}
