// Package session holds the pure rules of the learning session lifecycle:
// transitions, streak accounting, plans, summaries and review aggregation.
package session

import "github.com/vytor/learner/internal/models"

const (
	MinPlannedMinutes = 5
	MaxPlannedMinutes = 480
)

var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionPlanned:    {models.SessionInProgress},
	models.SessionInProgress: {models.SessionCompleted, models.SessionAbandoned},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to models.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.SessionStatus) bool {
	return len(transitions[status]) == 0
}

// AcceptsActivities reports whether activities may still be recorded or
// completed in a session with the given status.
func AcceptsActivities(status models.SessionStatus) bool {
	return CanTransition(status, models.SessionCompleted)
}

// ValidPlannedMinutes reports whether minutes is an acceptable time budget.
func ValidPlannedMinutes(minutes int) bool {
	return minutes >= MinPlannedMinutes && minutes <= MaxPlannedMinutes
}
