package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/vytor/learner/internal/logger"
)

type Config struct {
	Addr     string
	DBDriver string
	DBDSN    string
	LogLevel string
	Timezone string

	DefaultSessionMinutes int
	AbandonAppliesReviews bool
	ProgressMaxRetries    int

	ReviewDefaultEase       float64
	ReviewMinEase           float64
	ReviewPassThreshold     float64
	ReviewEaseBonus         float64
	ReviewEaseQualityFactor float64
	ReviewFailPenalty       float64
	ReviewMaxIntervalDays   int
	ReviewProficiencyWeight float64

	DigestCron        string
	DigestWorkerCount int
	DigestQueueSize   int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:     envOr("ADDR", ":8080"),
		DBDriver: envOr("DB_DRIVER", "sqlite3"),
		DBDSN:    envOr("DB_DSN", "file:learner.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),
		Timezone: envOr("TIMEZONE", "UTC"),

		DefaultSessionMinutes: envIntOr("DEFAULT_SESSION_MINUTES", 30),
		AbandonAppliesReviews: envBoolOr("ABANDON_APPLIES_REVIEWS", true),
		ProgressMaxRetries:    envIntOr("PROGRESS_MAX_RETRIES", 5),

		ReviewDefaultEase:       envFloatOr("REVIEW_DEFAULT_EASE", 2.5),
		ReviewMinEase:           envFloatOr("REVIEW_MIN_EASE", 1.3),
		ReviewPassThreshold:     envFloatOr("REVIEW_PASS_THRESHOLD", 0.6),
		ReviewEaseBonus:         envFloatOr("REVIEW_EASE_BONUS", 0.1),
		ReviewEaseQualityFactor: envFloatOr("REVIEW_EASE_QUALITY_FACTOR", 0.8),
		ReviewFailPenalty:       envFloatOr("REVIEW_FAIL_PENALTY", 0.2),
		ReviewMaxIntervalDays:   envIntOr("REVIEW_MAX_INTERVAL_DAYS", 180),
		ReviewProficiencyWeight: envFloatOr("REVIEW_PROFICIENCY_WEIGHT", 0.3),

		DigestCron:        envOr("DIGEST_CRON", "0 9 * * *"),
		DigestWorkerCount: envIntOr("DIGEST_WORKER_COUNT", 1),
		DigestQueueSize:   envIntOr("DIGEST_QUEUE_SIZE", 8),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errs = append(errs, errors.New("DB_DSN cannot be empty"))
	}
	if _, ok := logger.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE is not a known location: %v", err))
	}

	if c.DefaultSessionMinutes < 5 || c.DefaultSessionMinutes > 480 {
		errs = append(errs, fmt.Errorf("DEFAULT_SESSION_MINUTES must be between 5 and 480, got %d", c.DefaultSessionMinutes))
	}
	if c.ProgressMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("PROGRESS_MAX_RETRIES must be at least 1, got %d", c.ProgressMaxRetries))
	}

	if c.ReviewMinEase < 1 {
		errs = append(errs, fmt.Errorf("REVIEW_MIN_EASE must be at least 1, got %.2f", c.ReviewMinEase))
	}
	if c.ReviewDefaultEase < c.ReviewMinEase {
		errs = append(errs, fmt.Errorf("REVIEW_DEFAULT_EASE must not be below REVIEW_MIN_EASE, got %.2f", c.ReviewDefaultEase))
	}
	if c.ReviewPassThreshold <= 0 || c.ReviewPassThreshold > 1 {
		errs = append(errs, fmt.Errorf("REVIEW_PASS_THRESHOLD must be in (0, 1], got %.2f", c.ReviewPassThreshold))
	}
	if c.ReviewEaseQualityFactor < 0 || c.ReviewFailPenalty < 0 || c.ReviewEaseBonus < 0 {
		errs = append(errs, errors.New("REVIEW_EASE_BONUS, REVIEW_EASE_QUALITY_FACTOR and REVIEW_FAIL_PENALTY must not be negative"))
	}
	if c.ReviewMaxIntervalDays < 1 {
		errs = append(errs, fmt.Errorf("REVIEW_MAX_INTERVAL_DAYS must be at least 1, got %d", c.ReviewMaxIntervalDays))
	}
	if c.ReviewProficiencyWeight <= 0 || c.ReviewProficiencyWeight > 1 {
		errs = append(errs, fmt.Errorf("REVIEW_PROFICIENCY_WEIGHT must be in (0, 1], got %.2f", c.ReviewProficiencyWeight))
	}

	if _, err := cron.ParseStandard(c.DigestCron); err != nil {
		errs = append(errs, fmt.Errorf("DIGEST_CRON is not a valid cron expression: %v", err))
	}
	if c.DigestWorkerCount < 1 {
		errs = append(errs, fmt.Errorf("DIGEST_WORKER_COUNT must be at least 1, got %d", c.DigestWorkerCount))
	}
	if c.DigestQueueSize < 1 {
		errs = append(errs, fmt.Errorf("DIGEST_QUEUE_SIZE must be at least 1, got %d", c.DigestQueueSize))
	}

	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %.2f", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
