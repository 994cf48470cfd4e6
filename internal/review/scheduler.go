// Package review implements the SM-2 variant that schedules topic reviews
// from graded outcomes.
package review

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vytor/learner/internal/models"
)

var (
	ErrInvalidQuality = errors.New("quality must be between 0 and 1")
	// ErrStaleOutcome is returned for an outcome practiced before the stored last practice.
	ErrStaleOutcome = errors.New("outcome is older than the last recorded practice")
)

// Outcome is one graded attempt at a topic.
type Outcome struct {
	Correct bool    `json:"correct"`
	Quality float64 `json:"quality"`
}

// Policy holds the scheduling constants.
type Policy struct {
	DefaultEase       float64
	MinEase           float64
	PassThreshold     float64
	EaseBonus         float64
	EaseQualityFactor float64
	FailPenalty       float64
	MaxIntervalDays   int
	ProficiencyWeight float64
}

// DefaultPolicy returns the standard scheduling constants.
func DefaultPolicy() Policy {
	return Policy{
		DefaultEase:       2.5,
		MinEase:           1.3,
		PassThreshold:     0.6,
		EaseBonus:         0.1,
		EaseQualityFactor: 0.8,
		FailPenalty:       0.2,
		MaxIntervalDays:   180,
		ProficiencyWeight: 0.3,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MinEase < 1:
		return fmt.Errorf("min ease must be at least 1, got %.2f", p.MinEase)
	case p.DefaultEase < p.MinEase:
		return fmt.Errorf("default ease %.2f is below min ease %.2f", p.DefaultEase, p.MinEase)
	case p.PassThreshold <= 0 || p.PassThreshold > 1:
		return fmt.Errorf("pass threshold must be in (0, 1], got %.2f", p.PassThreshold)
	case p.EaseBonus < 0 || p.EaseQualityFactor < 0 || p.FailPenalty < 0:
		return errors.New("ease adjustments must not be negative")
	case p.MaxIntervalDays < 1:
		return fmt.Errorf("max interval must be at least 1 day, got %d", p.MaxIntervalDays)
	case p.ProficiencyWeight <= 0 || p.ProficiencyWeight > 1:
		return fmt.Errorf("proficiency weight must be in (0, 1], got %.2f", p.ProficiencyWeight)
	}
	return nil
}

// Passed reports whether the outcome counts as a successful recall.
func (p Policy) Passed(o Outcome) bool {
	return o.Correct && o.Quality >= p.PassThreshold
}

// Apply returns progress updated for an outcome practiced at practicedAt.
func (p Policy) Apply(progress models.TopicProgress, o Outcome, practicedAt time.Time) (models.TopicProgress, error) {
	if math.IsNaN(o.Quality) || o.Quality < 0 || o.Quality > 1 {
		return progress, ErrInvalidQuality
	}
	if progress.LastPracticed != nil && practicedAt.Before(*progress.LastPracticed) {
		return progress, ErrStaleOutcome
	}

	ease := progress.EaseFactor
	interval := progress.IntervalDays
	if interval < 1 || ease == 0 {
		interval = 1
		ease = p.DefaultEase
	}
	ease = math.Max(p.MinEase, ease)

	if p.Passed(o) {
		ease = math.Max(p.MinEase, ease+(p.EaseBonus-(1-o.Quality)*p.EaseQualityFactor))
		interval = int(math.Round(float64(interval) * ease))
		if interval > p.MaxIntervalDays {
			interval = p.MaxIntervalDays
		}
	} else {
		ease = math.Max(p.MinEase, ease-p.FailPenalty)
		interval = 1
	}

	w := p.ProficiencyWeight
	proficiency := progress.ProficiencyLevel*(1-w) + o.Quality*w

	last := practicedAt
	next := practicedAt.Add(time.Duration(interval) * 24 * time.Hour)

	progress.EaseFactor = ease
	progress.IntervalDays = interval
	progress.ProficiencyLevel = math.Min(1, math.Max(0, proficiency))
	progress.LastPracticed = &last
	progress.NextReview = &next
	progress.PracticeCount++
	return progress, nil
}

// IsDue reports whether progress has a review scheduled at or before now.
func IsDue(progress models.TopicProgress, now time.Time) bool {
	return progress.NextReview != nil && !progress.NextReview.After(now)
}
