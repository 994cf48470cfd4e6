package session

import (
	"github.com/google/uuid"
	"github.com/vytor/learner/internal/models"
)

// GapsKey is the performance data key listing gaps found during an activity.
const GapsKey = "gaps"

// Summarize reports what happened in a session. The last scored quiz and
// Feynman dialogue provide the headline scores.
func Summarize(s models.Session, activities []models.SessionActivity) models.SessionSummary {
	sum := models.SessionSummary{
		SessionID:         s.ID,
		Status:            s.Status,
		TopicsCovered:     []uuid.UUID{},
		NewGapsIdentified: []string{},
	}
	if s.ActualDurationMinutes != nil {
		sum.DurationMinutes = *s.ActualDurationMinutes
	}

	seen := map[uuid.UUID]bool{}
	for _, a := range activities {
		if a.EndedAt != nil {
			sum.ActivitiesCompleted++
		}
		if a.TopicID.Valid && !seen[a.TopicID.UUID] {
			seen[a.TopicID.UUID] = true
			sum.TopicsCovered = append(sum.TopicsCovered, a.TopicID.UUID)
		}

		switch a.ActivityType {
		case models.ActivityQuiz:
			if score, ok := a.PerformanceData.Float(ScoreKey); ok {
				sum.QuizScore = &score
			}
		case models.ActivityFeynmanDialogue:
			if score, ok := a.PerformanceData.Float(ScoreKey); ok {
				sum.FeynmanScore = &score
			}
		case models.ActivityContentRead:
			sum.ContentConsumed++
		}

		sum.NewGapsIdentified = append(sum.NewGapsIdentified, a.PerformanceData.Strings(GapsKey)...)
	}
	return sum
}
