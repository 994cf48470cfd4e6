package session

import (
	"github.com/google/uuid"
	"github.com/vytor/learner/internal/models"
)

const (
	consumptionRatio  = 0.5
	reflectionMinutes = 2
	minBlockMinutes   = 5
)

// BuildPlan splits a session's time budget into ordered activities.
// hasReview adds a review drill to regular sessions.
func BuildPlan(sessionID uuid.UUID, sessionType models.SessionType, minutes int, hasReview bool) models.SessionPlan {
	consumption := int(float64(minutes) * consumptionRatio)
	plan := models.SessionPlan{
		SessionID:            sessionID,
		TotalDurationMinutes: minutes,
		ConsumptionMinutes:   consumption,
		ProductionMinutes:    minutes - consumption,
		IncludesReview:       hasReview,
	}

	switch sessionType {
	case models.SessionDrill:
		plan.Items = drillItems(minutes)
	case models.SessionCatchup:
		plan.Items = catchupItems(minutes)
		plan.IncludesReview = true
	default:
		plan.Items = regularItems(consumption, minutes-consumption, hasReview)
	}
	return plan
}

type itemList []models.PlanItem

func (l *itemList) add(t models.ActivityType, minutes int, desc string) {
	*l = append(*l, models.PlanItem{
		Order:           len(*l),
		ActivityType:    t,
		DurationMinutes: minutes,
		Description:     desc,
	})
}

func regularItems(consumption, production int, hasReview bool) []models.PlanItem {
	var items itemList

	if hasReview {
		review := int(float64(production) * 0.2)
		if review > 10 {
			review = 10
		}
		if review > 0 {
			items.add(models.ActivityDrill, review, "Review previously challenging concepts")
			production -= review
		}
	}
	if consumption > 0 {
		items.add(models.ActivityContentRead, consumption, "Learn new material")
	}

	feynman := production / 2
	if feynman >= minBlockMinutes {
		items.add(models.ActivityFeynmanDialogue, feynman, "Explain concepts in your own words")
	}
	if quiz := production - feynman; quiz >= minBlockMinutes {
		items.add(models.ActivityQuiz, quiz, "Test your understanding")
	}

	if len(items) > 0 {
		items.add(models.ActivityReflection, reflectionMinutes, "Reflect on what you learned")
	}
	return items
}

func drillItems(total int) []models.PlanItem {
	var items itemList

	warmup := total / 10
	if warmup > 5 {
		warmup = 5
	}
	if warmup > 0 {
		items.add(models.ActivityQuiz, warmup, "Quick warmup quiz")
	}
	items.add(models.ActivityDrill, total-warmup-reflectionMinutes, "Focused practice on weak areas")
	items.add(models.ActivityReflection, reflectionMinutes, "Quick reflection")
	return items
}

func catchupItems(total int) []models.PlanItem {
	var items itemList

	review := int(float64(total) * 0.6)
	items.add(models.ActivityDrill, review, "Review due items")

	learn := int(float64(total) * 0.3)
	if learn >= minBlockMinutes {
		items.add(models.ActivityContentRead, learn, "Light new material")
	} else {
		learn = 0
	}
	items.add(models.ActivityReflection, total-review-learn, "Session wrap-up")
	return items
}
