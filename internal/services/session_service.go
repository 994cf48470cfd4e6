package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/metrics"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
	"github.com/vytor/learner/internal/review"
	"github.com/vytor/learner/internal/session"
)

// RecordActivityRequest describes an activity starting in a session.
type RecordActivityRequest struct {
	SessionID       uuid.UUID
	ActivityType    models.ActivityType
	TopicID         *uuid.UUID
	ContentID       *uuid.UUID
	PerformanceData models.PerformanceData
}

// SessionService runs the session lifecycle.
type SessionService interface {
	Start(ctx context.Context, userID uuid.UUID, plannedMinutes int, sessionType models.SessionType) (*models.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.Session, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.Session, error)
	Activities(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error)

	RecordActivity(ctx context.Context, req RecordActivityRequest) (*models.SessionActivity, error)
	CompleteActivity(ctx context.Context, sessionID, activityID uuid.UUID, performance models.PerformanceData) (*models.SessionActivity, error)

	End(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Abandon(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Session, error)

	Plan(ctx context.Context, sessionID uuid.UUID) (*models.SessionPlan, error)
	Summary(ctx context.Context, sessionID uuid.UUID) (*models.SessionSummary, error)
	Streak(ctx context.Context, userID uuid.UUID) (models.StreakInfo, error)
}

// SessionOptions configures a SessionService.
type SessionOptions struct {
	DefaultMinutes        int
	AbandonAppliesReviews bool
	PassThreshold         float64
	// Location decides which calendar day a session counts toward.
	Location *time.Location
	Now      func() time.Time
}

type sessionService struct {
	sessions repository.SessionRepository
	progress repository.ProgressRepository
	users    repository.UserRepository
	reviews  ProgressService
	opts     SessionOptions
}

// NewSessionService creates a new SessionService
func NewSessionService(
	sessions repository.SessionRepository,
	progress repository.ProgressRepository,
	users repository.UserRepository,
	reviews ProgressService,
	opts SessionOptions,
) SessionService {
	if opts.DefaultMinutes == 0 {
		opts.DefaultMinutes = 30
	}
	if opts.PassThreshold == 0 {
		opts.PassThreshold = review.DefaultPolicy().PassThreshold
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &sessionService{
		sessions: sessions,
		progress: progress,
		users:    users,
		reviews:  reviews,
		opts:     opts,
	}
}

func (s *sessionService) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *sessionService) Start(ctx context.Context, userID uuid.UUID, plannedMinutes int, sessionType models.SessionType) (*models.Session, error) {
	log := logger.FromContext(ctx).WithField("user_id", userID)

	if plannedMinutes == 0 {
		plannedMinutes = s.opts.DefaultMinutes
	}
	if !session.ValidPlannedMinutes(plannedMinutes) {
		return nil, errors.NewValidationError("planned_duration_minutes",
			fmt.Sprintf("must be between %d and %d", session.MinPlannedMinutes, session.MaxPlannedMinutes))
	}
	if sessionType == "" {
		sessionType = models.SessionRegular
	}
	if !sessionType.Valid() {
		return nil, errors.NewValidationError("session_type", "must be one of regular, catchup, drill")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("user", userID)
	}

	now := s.now()
	started, err := s.sessions.Start(ctx, models.Session{
		ID:                     uuid.New(),
		UserID:                 userID,
		Type:                   sessionType,
		Status:                 models.SessionPlanned,
		PlannedDurationMinutes: plannedMinutes,
		StartedAt:              now,
		CreatedAt:              now,
	})
	if stderrors.Is(err, repository.ErrConflict) {
		metrics.SessionConflicts.Inc()
		log.Warn("session start rejected: another session is in progress")
		return nil, errors.NewConflictError("user already has a session in progress", err)
	}
	if err != nil {
		log.Error("failed to start session: %v", err)
		return nil, errors.NewInternalError(err)
	}

	metrics.SessionsStarted.WithLabelValues(string(sessionType)).Inc()
	log.Info("session started: id=%s, type=%s, planned_minutes=%d", started.ID, started.Type, started.PlannedDurationMinutes)
	return started, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sess == nil {
		return nil, errors.NewNotFoundError("session", id)
	}
	return sess, nil
}

func (s *sessionService) Current(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	sess, err := s.sessions.GetActive(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get active session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sess == nil {
		return nil, errors.NewNotFoundError("active session for user", userID)
	}
	return sess, nil
}

func (s *sessionService) History(ctx context.Context, filter models.HistoryFilter) ([]models.Session, error) {
	if filter.Limit < 0 {
		return nil, errors.NewValidationError("limit", "must not be negative")
	}
	out, err := s.sessions.History(ctx, filter)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list session history: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.Session{}
	}
	return out, nil
}

func (s *sessionService) Activities(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	out, err := s.sessions.Activities(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list activities: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.SessionActivity{}
	}
	return out, nil
}

func (s *sessionService) RecordActivity(ctx context.Context, req RecordActivityRequest) (*models.SessionActivity, error) {
	log := logger.FromContext(ctx).WithField("session_id", req.SessionID)

	if !req.ActivityType.Valid() {
		return nil, errors.NewValidationError("activity_type",
			"must be one of content_read, quiz, feynman_dialogue, drill, reflection")
	}

	sess, err := s.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.AcceptsActivities(sess.Status) {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s is %s, not in progress", sess.ID, sess.Status))
	}

	a := models.SessionActivity{
		ID:              uuid.New(),
		SessionID:       req.SessionID,
		ActivityType:    req.ActivityType,
		StartedAt:       s.now(),
		PerformanceData: req.PerformanceData,
	}
	if a.PerformanceData == nil {
		a.PerformanceData = models.PerformanceData{}
	}
	if req.TopicID != nil {
		a.TopicID = uuid.NullUUID{UUID: *req.TopicID, Valid: true}
	}
	if req.ContentID != nil {
		a.ContentID = uuid.NullUUID{UUID: *req.ContentID, Valid: true}
	}

	err = s.sessions.OpenActivity(ctx, a)
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrInvalidTransition):
		return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s is not in progress", req.SessionID))
	case stderrors.Is(err, repository.ErrNotFound):
		return nil, errors.NewNotFoundError("topic", a.TopicID.UUID)
	case stderrors.Is(err, repository.ErrConflict):
		return nil, errors.NewConflictError("another activity was recorded concurrently", err)
	default:
		log.Error("failed to record activity: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("activity started: id=%s, type=%s", a.ID, a.ActivityType)
	return &a, nil
}

func (s *sessionService) CompleteActivity(ctx context.Context, sessionID, activityID uuid.UUID, performance models.PerformanceData) (*models.SessionActivity, error) {
	log := logger.FromContext(ctx).WithField("session_id", sessionID)

	if score, ok := performance[session.ScoreKey]; ok {
		if f, isNum := performance.Float(session.ScoreKey); !isNum || f < 0 || f > 1 {
			return nil, errors.NewValidationError("performance_data.score", fmt.Sprintf("must be a number between 0 and 1, got %v", score))
		}
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AcceptsActivities(sess.Status) {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s is %s, not in progress", sess.ID, sess.Status))
	}

	open, err := s.sessions.GetActivity(ctx, sessionID, activityID)
	if err != nil {
		log.Error("failed to get activity: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if open == nil {
		return nil, errors.NewNotFoundError("activity", activityID)
	}
	if open.EndedAt != nil {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("activity %s is already closed", activityID))
	}

	a, err := s.sessions.CompleteActivity(ctx, sessionID, activityID, performance, s.now())
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrNotFound):
		return nil, errors.NewNotFoundError("activity", activityID)
	case stderrors.Is(err, repository.ErrInvalidTransition):
		return nil, errors.NewInvalidStateError(fmt.Sprintf("activity %s is already closed or the session has ended", activityID))
	default:
		log.Error("failed to complete activity: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("activity completed: id=%s, type=%s", a.ID, a.ActivityType)
	return a, nil
}

func (s *sessionService) End(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.finish(ctx, models.FinishRequest{
		SessionID: sessionID,
		Status:    models.SessionCompleted,
	}, true)
}

func (s *sessionService) Abandon(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Session, error) {
	req := models.FinishRequest{
		SessionID: sessionID,
		Status:    models.SessionAbandoned,
	}
	if reason != "" {
		req.AbandonReason = &reason
	}
	return s.finish(ctx, req, s.opts.AbandonAppliesReviews)
}

func (s *sessionService) finish(ctx context.Context, req models.FinishRequest, applyReviews bool) (*models.Session, error) {
	log := logger.FromContext(ctx).WithField("session_id", req.SessionID)

	sess, err := s.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.CanTransition(sess.Status, req.Status) {
		if session.IsTerminal(sess.Status) {
			return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s is already %s", sess.ID, sess.Status))
		}
		return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s cannot move from %s to %s", sess.ID, sess.Status, req.Status))
	}

	req.EndedAt = s.now()
	advance := func(st models.Streak) models.Streak {
		return session.AdvanceStreak(st, req.EndedAt, s.opts.Location)
	}

	finished, err := s.sessions.Finish(ctx, req, advance)
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrNotFound):
		return nil, errors.NewNotFoundError("session", req.SessionID)
	case stderrors.Is(err, repository.ErrInvalidTransition):
		return nil, errors.NewInvalidStateError(fmt.Sprintf("session %s is not in progress", req.SessionID))
	default:
		log.Error("failed to finish session: %v", err)
		return nil, errors.NewInternalError(err)
	}

	metrics.SessionsFinished.WithLabelValues(string(finished.Status)).Inc()
	log.Info("session %s: duration=%d min", finished.Status, derefInt(finished.ActualDurationMinutes))

	if applyReviews {
		s.applyReviews(ctx, finished)
	}
	return finished, nil
}

// applyReviews feeds the session's aggregated topic scores into the scheduler.
// The session has already ended, so failures are logged and skipped.
func (s *sessionService) applyReviews(ctx context.Context, sess *models.Session) {
	log := logger.FromContext(ctx).WithField("session_id", sess.ID)

	activities, err := s.sessions.Activities(ctx, sess.ID)
	if err != nil {
		log.Error("failed to load activities for review update: %v", err)
		return
	}

	practicedAt := s.now()
	if sess.EndedAt != nil {
		practicedAt = *sess.EndedAt
	}
	for _, q := range session.AggregateQualities(activities) {
		outcome := review.Outcome{Correct: q.Quality >= s.opts.PassThreshold, Quality: q.Quality}
		if _, err := s.reviews.RecordOutcome(ctx, sess.UserID, q.TopicID, outcome, practicedAt); err != nil {
			log.Warn("failed to update review for topic %s: %v", q.TopicID, err)
			continue
		}
		log.Debug("review updated: topic_id=%s, quality=%.2f, samples=%d", q.TopicID, q.Quality, q.Samples)
	}
}

func (s *sessionService) Plan(ctx context.Context, sessionID uuid.UUID) (*models.SessionPlan, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due, err := s.progress.DueForReview(ctx, sess.UserID, now, 1)
	if err != nil {
		logger.FromContext(ctx).Error("failed to check due reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}
	hasReview := len(due) > 0 && review.IsDue(due[0], now)

	plan := session.BuildPlan(sess.ID, sess.Type, sess.PlannedDurationMinutes, hasReview)
	return &plan, nil
}

func (s *sessionService) Summary(ctx context.Context, sessionID uuid.UUID) (*models.SessionSummary, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	activities, err := s.sessions.Activities(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list activities: %v", err)
		return nil, errors.NewInternalError(err)
	}

	sum := session.Summarize(*sess, activities)
	info, err := s.Streak(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sum.Streak = &info
	return &sum, nil
}

func (s *sessionService) Streak(ctx context.Context, userID uuid.UUID) (models.StreakInfo, error) {
	st, err := s.sessions.GetStreak(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get streak: %v", err)
		return models.StreakInfo{}, errors.NewInternalError(err)
	}
	return session.Info(st, s.now(), s.opts.Location), nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
