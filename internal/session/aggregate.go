package session

import (
	"sort"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/models"
)

// ScoreKey is the performance data key holding a normalized [0,1] score.
const ScoreKey = "score"

// TopicQuality is the aggregated quality of one topic over a session.
type TopicQuality struct {
	TopicID uuid.UUID
	Quality float64
	Samples int
}

// AggregateQualities averages the scores of graded activities per topic.
// Activities without a topic, without a numeric score, or with a score outside
// [0,1] are ignored. The result is ordered by topic id.
func AggregateQualities(activities []models.SessionActivity) []TopicQuality {
	sums := map[uuid.UUID]float64{}
	counts := map[uuid.UUID]int{}

	for _, a := range activities {
		if !a.ActivityType.Graded() || !a.TopicID.Valid {
			continue
		}
		score, ok := a.PerformanceData.Float(ScoreKey)
		if !ok || score < 0 || score > 1 {
			continue
		}
		sums[a.TopicID.UUID] += score
		counts[a.TopicID.UUID]++
	}

	out := make([]TopicQuality, 0, len(sums))
	for id, sum := range sums {
		out = append(out, TopicQuality{TopicID: id, Quality: sum / float64(counts[id]), Samples: counts[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID.String() < out[j].TopicID.String() })
	return out
}
