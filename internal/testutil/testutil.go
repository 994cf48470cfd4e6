package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
)

func init() {
	logger.SetDefault(logger.New(logger.WithLevel(logger.ERROR), logger.WithColors(false)))
}

// NewTestDB opens a SQLite database in a temporary directory with all migrations applied.
// A file is used instead of :memory: so every pooled connection sees the same schema.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return database
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// SeedUser inserts a user with a random id.
func SeedUser(t *testing.T, database *db.DB) models.User {
	t.Helper()
	u := models.User{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@example.com",
		DisplayName: "Test User",
		CreatedAt:   time.Now().UTC(),
	}
	_, err := database.ExecContext(context.Background(), database.Rebind(
		`INSERT INTO users (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`),
		u.ID, u.Email, u.DisplayName, u.CreatedAt)
	require.NoError(t, err)
	return u
}

// SeedTopic inserts a topic with a random id.
func SeedTopic(t *testing.T, database *db.DB, name string) models.Topic {
	t.Helper()
	tp := models.Topic{
		ID:        uuid.New(),
		Name:      name + "-" + uuid.NewString()[:8],
		CreatedAt: time.Now().UTC(),
	}
	_, err := database.ExecContext(context.Background(), database.Rebind(
		`INSERT INTO topics (id, name, description, created_at) VALUES (?, ?, ?, ?)`),
		tp.ID, tp.Name, tp.Description, tp.CreatedAt)
	require.NoError(t, err)
	return tp
}

// Clock is a settable time source for services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
