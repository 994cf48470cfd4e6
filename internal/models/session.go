package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

type SessionType string

const (
	SessionRegular SessionType = "regular"
	SessionCatchup SessionType = "catchup"
	SessionDrill   SessionType = "drill"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case SessionRegular, SessionCatchup, SessionDrill:
		return true
	}
	return false
}

type ActivityType string

const (
	ActivityContentRead     ActivityType = "content_read"
	ActivityQuiz            ActivityType = "quiz"
	ActivityFeynmanDialogue ActivityType = "feynman_dialogue"
	ActivityDrill           ActivityType = "drill"
	ActivityReflection      ActivityType = "reflection"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityContentRead, ActivityQuiz, ActivityFeynmanDialogue, ActivityDrill, ActivityReflection:
		return true
	}
	return false
}

// Graded reports whether activities of this type carry a score that feeds reviews.
func (t ActivityType) Graded() bool {
	return t == ActivityQuiz || t == ActivityFeynmanDialogue
}

type Session struct {
	ID                     uuid.UUID     `db:"id" json:"id"`
	UserID                 uuid.UUID     `db:"user_id" json:"user_id"`
	Type                   SessionType   `db:"session_type" json:"session_type"`
	Status                 SessionStatus `db:"status" json:"status"`
	PlannedDurationMinutes int           `db:"planned_duration_minutes" json:"planned_duration_minutes"`
	ActualDurationMinutes  *int          `db:"actual_duration_minutes" json:"actual_duration_minutes"`
	StartedAt              time.Time     `db:"started_at" json:"started_at"`
	EndedAt                *time.Time    `db:"ended_at" json:"ended_at"`
	AbandonReason          *string       `db:"abandon_reason" json:"abandon_reason,omitempty"`
	CreatedAt              time.Time     `db:"created_at" json:"created_at"`
}

type SessionActivity struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	SessionID       uuid.UUID       `db:"session_id" json:"session_id"`
	ActivityType    ActivityType    `db:"activity_type" json:"activity_type"`
	TopicID         uuid.NullUUID   `db:"topic_id" json:"topic_id"`
	ContentID       uuid.NullUUID   `db:"content_id" json:"content_id"`
	StartedAt       time.Time       `db:"started_at" json:"started_at"`
	EndedAt         *time.Time      `db:"ended_at" json:"ended_at"`
	PerformanceData PerformanceData `db:"performance_data" json:"performance_data"`
}

// HistoryFilter selects sessions for the history listing.
type HistoryFilter struct {
	UserID           uuid.UUID
	Limit            int
	IncludeAbandoned bool
}

// FinishRequest describes the terminal transition of an in-progress session.
type FinishRequest struct {
	SessionID     uuid.UUID
	Status        SessionStatus // completed or abandoned
	EndedAt       time.Time
	AbandonReason *string
}

type PlanItem struct {
	Order           int          `json:"order"`
	ActivityType    ActivityType `json:"activity_type"`
	DurationMinutes int          `json:"duration_minutes"`
	Description     string       `json:"description"`
}

type SessionPlan struct {
	SessionID            uuid.UUID  `json:"session_id"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
	ConsumptionMinutes   int        `json:"consumption_minutes"`
	ProductionMinutes    int        `json:"production_minutes"`
	Items                []PlanItem `json:"items"`
	IncludesReview       bool       `json:"includes_review"`
}

type SessionSummary struct {
	SessionID           uuid.UUID     `json:"session_id"`
	Status              SessionStatus `json:"status"`
	DurationMinutes     int           `json:"duration_minutes"`
	ActivitiesCompleted int           `json:"activities_completed"`
	TopicsCovered       []uuid.UUID   `json:"topics_covered"`
	ContentConsumed     int           `json:"content_consumed"`
	QuizScore           *float64      `json:"quiz_score"`
	FeynmanScore        *float64      `json:"feynman_score"`
	NewGapsIdentified   []string      `json:"new_gaps_identified"`
	Streak              *StreakInfo   `json:"streak,omitempty"`
}

// Streak is the stored per-user streak counter.
// LastSessionDate holds a calendar date at UTC midnight.
type Streak struct {
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	CurrentStreak   int        `db:"current_streak" json:"current_streak"`
	LongestStreak   int        `db:"longest_streak" json:"longest_streak"`
	LastSessionDate *time.Time `db:"last_session_date" json:"last_session_date"`
	TotalSessions   int        `db:"total_sessions" json:"total_sessions"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type StreakInfo struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastSessionDate *time.Time `json:"last_session_date"`
	TotalSessions   int        `json:"total_sessions"`
	AtRisk          bool       `json:"streak_at_risk"`
}
