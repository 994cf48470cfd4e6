package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/models"
)

// Get methods return (nil, nil) when the row does not exist.

// UserRepository handles user data access
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Insert(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TopicRepository handles topic data access
type TopicRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	List(ctx context.Context) ([]models.Topic, error)
	Insert(ctx context.Context, topic models.Topic) error
}

// ProgressRepository stores one TopicProgress per (user, topic).
type ProgressRepository interface {
	Get(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopicProgress, error)
	DueForReview(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.TopicProgress, error)
	CountDueByUser(ctx context.Context, now time.Time) ([]models.DueCount, error)
	// Insert fails with ErrConflict if the (user, topic) pair already exists.
	Insert(ctx context.Context, progress models.TopicProgress) error
	// Update writes progress only if the stored version equals expectedVersion,
	// failing with ErrVersionConflict otherwise.
	Update(ctx context.Context, progress models.TopicProgress, expectedVersion int64) error
}

// StreakAdvancer computes the streak after a completed session.
type StreakAdvancer func(models.Streak) models.Streak

// SessionRepository handles sessions, their activities and the streak they feed.
type SessionRepository interface {
	// Start inserts a planned session and moves it to in_progress atomically.
	// A second in-progress session for the same user fails with ErrConflict.
	Start(ctx context.Context, session models.Session) (*models.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Session, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.Session, error)
	// Finish closes the open activity and moves an in-progress session to a
	// terminal status. advance is applied to the user's streak in the same
	// transaction when the session completes.
	Finish(ctx context.Context, req models.FinishRequest, advance StreakAdvancer) (*models.Session, error)

	Activities(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error)
	GetActivity(ctx context.Context, sessionID, activityID uuid.UUID) (*models.SessionActivity, error)
	// OpenActivity closes the current open activity at activity.StartedAt and
	// inserts activity. Fails with ErrInvalidTransition unless the session is in progress.
	OpenActivity(ctx context.Context, activity models.SessionActivity) error
	// CompleteActivity merges performance into the activity and closes it.
	CompleteActivity(ctx context.Context, sessionID, activityID uuid.UUID, performance models.PerformanceData, endedAt time.Time) (*models.SessionActivity, error)

	GetStreak(ctx context.Context, userID uuid.UUID) (*models.Streak, error)
}

// ProgressApplier returns the record to write for topicID given the stored one
// (nil before the first practice). Returning nil skips the write.
type ProgressApplier func(topicID uuid.UUID, current *models.TopicProgress) (*models.TopicProgress, error)

// QuizAttemptRepository stores immutable quiz attempts.
type QuizAttemptRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizAttempt, error)
	// Insert fails with ErrConflict if the attempt id already exists.
	Insert(ctx context.Context, attempt models.QuizAttempt) error
	// Submit inserts the attempt and writes the progress of every topic it
	// covers in one transaction; either all of it is stored or none of it.
	// Fails with ErrConflict if the attempt id already exists and with
	// ErrVersionConflict if a progress record changed concurrently.
	Submit(ctx context.Context, attempt models.QuizAttempt, apply ProgressApplier) error
}
