package services

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/metrics"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
	"github.com/vytor/learner/internal/review"
)

// ProgressService records graded outcomes and exposes the review queue.
type ProgressService interface {
	RecordOutcome(ctx context.Context, userID, topicID uuid.UUID, outcome review.Outcome, practicedAt time.Time) (*models.TopicProgress, error)
	Get(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.TopicProgress, error)
	Due(ctx context.Context, userID uuid.UUID, limit int) ([]models.TopicProgress, error)
}

type progressService struct {
	progress   repository.ProgressRepository
	users      repository.UserRepository
	topics     repository.TopicRepository
	policy     review.Policy
	maxRetries int
	now        func() time.Time
}

// NewProgressService creates a new ProgressService. maxRetries bounds the
// compare-and-swap attempts of a single RecordOutcome call.
func NewProgressService(
	progress repository.ProgressRepository,
	users repository.UserRepository,
	topics repository.TopicRepository,
	policy review.Policy,
	maxRetries int,
	now func() time.Time,
) ProgressService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if now == nil {
		now = time.Now
	}
	return &progressService{
		progress:   progress,
		users:      users,
		topics:     topics,
		policy:     policy,
		maxRetries: maxRetries,
		now:        now,
	}
}

// maxClockSkew bounds how far ahead of the server clock a client practice time may be.
const maxClockSkew = 5 * time.Minute

// practiceTime defaults a zero practice time to now and rejects times in the future.
func practiceTime(field string, t, now time.Time) (time.Time, error) {
	if t.IsZero() {
		return now.UTC(), nil
	}
	if t.After(now.Add(maxClockSkew)) {
		return time.Time{}, errors.NewValidationError(field, "must not be in the future")
	}
	return t.UTC(), nil
}

// nextProgress applies an outcome to current, or to a fresh record when
// current is nil. review.ErrStaleOutcome is returned unwrapped.
func nextProgress(policy review.Policy, current *models.TopicProgress, userID, topicID uuid.UUID,
	outcome review.Outcome, practicedAt, now time.Time) (models.TopicProgress, error) {
	now = now.UTC()
	base := models.TopicProgress{
		ID:         uuid.New(),
		UserID:     userID,
		TopicID:    topicID,
		EaseFactor: policy.DefaultEase,
		CreatedAt:  now,
	}
	if current != nil {
		base = *current
	}

	next, err := policy.Apply(base, outcome, practicedAt)
	if err != nil {
		return models.TopicProgress{}, err
	}
	next.Version = base.Version + 1
	next.UpdatedAt = now
	return next, nil
}

func countOutcome(policy review.Policy, o review.Outcome) {
	result := "fail"
	if policy.Passed(o) {
		result = "pass"
	}
	metrics.ReviewOutcomes.WithLabelValues(result).Inc()
}

func (s *progressService) RecordOutcome(ctx context.Context, userID, topicID uuid.UUID, outcome review.Outcome, practicedAt time.Time) (*models.TopicProgress, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{"user_id": userID, "topic_id": topicID})
	log.Debug("recording outcome: correct=%t, quality=%.2f", outcome.Correct, outcome.Quality)

	if math.IsNaN(outcome.Quality) || outcome.Quality < 0 || outcome.Quality > 1 {
		return nil, errors.NewValidationError("quality", "must be between 0 and 1")
	}
	practicedAt, err := practiceTime("practiced_at", practicedAt, s.now())
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.progress.Get(ctx, userID, topicID)
		if err != nil {
			log.Error("failed to load progress: %v", err)
			return nil, errors.NewInternalError(err)
		}
		if current == nil {
			if err := s.ensureUserAndTopic(ctx, userID, topicID); err != nil {
				return nil, err
			}
		}

		next, err := nextProgress(s.policy, current, userID, topicID, outcome, practicedAt, s.now())
		if stderrors.Is(err, review.ErrStaleOutcome) {
			log.Warn("dropping stale outcome: practiced_at=%s, last_practiced=%s",
				practicedAt.Format(time.RFC3339), current.LastPracticed.Format(time.RFC3339))
			metrics.ReviewOutcomes.WithLabelValues("stale").Inc()
			return current, nil
		}
		if err != nil {
			return nil, errors.NewValidationError("quality", err.Error())
		}

		if current == nil {
			err = s.progress.Insert(ctx, next)
			if stderrors.Is(err, repository.ErrConflict) {
				log.Debug("progress created concurrently, retrying: attempt=%d", attempt)
				metrics.ProgressRetries.Inc()
				continue
			}
		} else {
			err = s.progress.Update(ctx, next, current.Version)
			if stderrors.Is(err, repository.ErrVersionConflict) {
				log.Debug("version conflict, retrying: attempt=%d, expected_version=%d", attempt, current.Version)
				metrics.ProgressRetries.Inc()
				continue
			}
		}
		if err != nil {
			log.Error("failed to write progress: %v", err)
			return nil, errors.NewInternalError(err)
		}

		countOutcome(s.policy, outcome)
		log.Info("progress recorded: interval=%d days, ease_factor=%.2f, version=%d",
			next.IntervalDays, next.EaseFactor, next.Version)
		return &next, nil
	}

	log.Warn("giving up after %d conflicting writes", s.maxRetries)
	return nil, errors.NewConflictError("topic progress changed concurrently, try again", repository.ErrVersionConflict)
}

func (s *progressService) ensureUserAndTopic(ctx context.Context, userID, topicID uuid.UUID) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if user == nil {
		return errors.NewNotFoundError("user", userID)
	}

	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if topic == nil {
		return errors.NewNotFoundError("topic", topicID)
	}
	return nil
}

func (s *progressService) Get(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	p, err := s.progress.Get(ctx, userID, topicID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if p == nil {
		return nil, errors.NewNotFoundError("topic progress", topicID)
	}
	return p, nil
}

func (s *progressService) List(ctx context.Context, userID uuid.UUID) ([]models.TopicProgress, error) {
	out, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.TopicProgress{}
	}
	return out, nil
}

func (s *progressService) Due(ctx context.Context, userID uuid.UUID, limit int) ([]models.TopicProgress, error) {
	if limit < 0 {
		return nil, errors.NewValidationError("limit", "must not be negative")
	}
	out, err := s.progress.DueForReview(ctx, userID, s.now().UTC(), limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list due reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.TopicProgress{}
	}
	return out, nil
}
