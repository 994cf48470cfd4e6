package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizAttempt is an immutable graded quiz submission.
type QuizAttempt struct {
	ID               uuid.UUID `db:"id" json:"id"`
	QuizID           uuid.UUID `db:"quiz_id" json:"quiz_id"`
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	Answers          RawJSON   `db:"answers" json:"answers"`
	Score            float64   `db:"score" json:"score"`
	TimeTakenSeconds int       `db:"time_taken_seconds" json:"time_taken_seconds"`
	TopicIDs         UUIDList  `db:"topic_ids" json:"topic_ids"`
	GapsIdentified   UUIDList  `db:"gaps_identified" json:"gaps_identified"`
	AttemptedAt      time.Time `db:"attempted_at" json:"attempted_at"`
}
