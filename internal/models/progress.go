package models

import (
	"time"

	"github.com/google/uuid"
)

// TopicProgress is the spaced-repetition state of one user on one topic.
// Version is bumped on every write and used for compare-and-swap updates.
type TopicProgress struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	TopicID          uuid.UUID  `db:"topic_id" json:"topic_id"`
	ProficiencyLevel float64    `db:"proficiency_level" json:"proficiency_level"` // 0..1
	EaseFactor       float64    `db:"ease_factor" json:"ease_factor"`
	IntervalDays     int        `db:"interval_days" json:"interval_days"`
	LastPracticed    *time.Time `db:"last_practiced" json:"last_practiced"`
	NextReview       *time.Time `db:"next_review" json:"next_review"`
	PracticeCount    int        `db:"practice_count" json:"practice_count"`
	Version          int64      `db:"version" json:"version"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// DueCount is the number of due reviews of one user.
type DueCount struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Due    int       `db:"due" json:"due"`
}
