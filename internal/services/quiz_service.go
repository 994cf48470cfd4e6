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

// QuizService stores graded quiz attempts and feeds them into topic progress.
type QuizService interface {
	// SubmitAttempt stores the attempt together with one outcome per covered
	// topic. Nothing is stored when any part fails.
	SubmitAttempt(ctx context.Context, attempt models.QuizAttempt) (*models.QuizAttempt, error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizAttempt, error)
}

type quizService struct {
	attempts   repository.QuizAttemptRepository
	users      repository.UserRepository
	topics     repository.TopicRepository
	policy     review.Policy
	maxRetries int
	now        func() time.Time
}

// NewQuizService creates a new QuizService. maxRetries bounds how often a
// submission is replayed after losing a progress write race.
func NewQuizService(
	attempts repository.QuizAttemptRepository,
	users repository.UserRepository,
	topics repository.TopicRepository,
	policy review.Policy,
	maxRetries int,
	now func() time.Time,
) QuizService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if now == nil {
		now = time.Now
	}
	return &quizService{
		attempts:   attempts,
		users:      users,
		topics:     topics,
		policy:     policy,
		maxRetries: maxRetries,
		now:        now,
	}
}

func (s *quizService) SubmitAttempt(ctx context.Context, a models.QuizAttempt) (*models.QuizAttempt, error) {
	log := logger.FromContext(ctx).WithField("user_id", a.UserID)

	if math.IsNaN(a.Score) || a.Score < 0 || a.Score > 1 {
		return nil, errors.NewValidationError("score", "must be between 0 and 1")
	}
	if a.TimeTakenSeconds < 0 {
		return nil, errors.NewValidationError("time_taken_seconds", "must not be negative")
	}
	if a.QuizID == uuid.Nil {
		return nil, errors.NewValidationError("quiz_id", "is required")
	}
	attemptedAt, err := practiceTime("attempted_at", a.AttemptedAt, s.now())
	if err != nil {
		return nil, err
	}
	a.AttemptedAt = attemptedAt
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Answers == nil {
		a.Answers = models.RawJSON("[]")
	}
	if a.TopicIDs == nil {
		a.TopicIDs = models.UUIDList{}
	}
	if a.GapsIdentified == nil {
		a.GapsIdentified = models.UUIDList{}
	}

	seen := make(map[uuid.UUID]bool, len(a.TopicIDs))
	for _, topicID := range a.TopicIDs {
		if seen[topicID] {
			return nil, errors.NewValidationError("topic_ids", "must not repeat a topic")
		}
		seen[topicID] = true
	}

	user, err := s.users.Get(ctx, a.UserID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("user", a.UserID)
	}
	for _, topicID := range a.TopicIDs {
		topic, err := s.topics.Get(ctx, topicID)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if topic == nil {
			return nil, errors.NewNotFoundError("topic", topicID)
		}
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		var applied []review.Outcome
		stale := 0
		apply := func(topicID uuid.UUID, current *models.TopicProgress) (*models.TopicProgress, error) {
			outcome := review.Outcome{
				Correct: a.Score >= s.policy.PassThreshold && !a.GapsIdentified.Contains(topicID),
				Quality: a.Score,
			}
			next, err := nextProgress(s.policy, current, a.UserID, topicID, outcome, a.AttemptedAt, s.now())
			if stderrors.Is(err, review.ErrStaleOutcome) {
				log.Warn("skipping stale outcome for topic %s", topicID)
				stale++
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			applied = append(applied, outcome)
			return &next, nil
		}

		err := s.attempts.Submit(ctx, a, apply)
		switch {
		case err == nil:
			for _, o := range applied {
				countOutcome(s.policy, o)
			}
			metrics.ReviewOutcomes.WithLabelValues("stale").Add(float64(stale))
			log.Info("quiz attempt stored: id=%s, score=%.2f, topics=%d", a.ID, a.Score, len(a.TopicIDs))
			return &a, nil
		case stderrors.Is(err, repository.ErrVersionConflict):
			log.Debug("progress changed during submission, retrying: attempt=%d", attempt)
			metrics.ProgressRetries.Inc()
			continue
		case stderrors.Is(err, repository.ErrConflict):
			return nil, errors.NewInvalidStateError("quiz attempt " + a.ID.String() + " was already submitted")
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NewNotFoundError("user", a.UserID)
		default:
			log.Error("failed to submit quiz attempt: %v", err)
			return nil, errors.NewInternalError(err)
		}
	}

	log.Warn("giving up quiz attempt %s after %d conflicting writes", a.ID, s.maxRetries)
	return nil, errors.NewConflictError("topic progress changed concurrently, try again", repository.ErrVersionConflict)
}

func (s *quizService) Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	a, err := s.attempts.Get(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if a == nil {
		return nil, errors.NewNotFoundError("quiz attempt", id)
	}
	return a, nil
}

func (s *quizService) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizAttempt, error) {
	out, err := s.attempts.ListByUser(ctx, userID, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list quiz attempts: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.QuizAttempt{}
	}
	return out, nil
}
