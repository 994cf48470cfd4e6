package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
	"github.com/vytor/learner/internal/review"
	"github.com/vytor/learner/internal/services"
	"github.com/vytor/learner/internal/testutil/mocks"
)

type recordedOutcome struct {
	topicID uuid.UUID
	outcome review.Outcome
}

// recordingProgress captures the outcomes a session feeds into the scheduler.
type recordingProgress struct {
	services.ProgressService
	calls []recordedOutcome
}

func (r *recordingProgress) RecordOutcome(_ context.Context, _, topicID uuid.UUID, o review.Outcome, _ time.Time) (*models.TopicProgress, error) {
	r.calls = append(r.calls, recordedOutcome{topicID, o})
	return &models.TopicProgress{TopicID: topicID}, nil
}

type sessionFixture struct {
	sessions *mocks.MockSessionRepository
	progress *mocks.MockProgressRepository
	users    *mocks.MockUserRepository
	reviews  *recordingProgress
	svc      services.SessionService
	userID   uuid.UUID
}

func newSessionFixture(abandonAppliesReviews bool) *sessionFixture {
	f := &sessionFixture{
		sessions: new(mocks.MockSessionRepository),
		progress: new(mocks.MockProgressRepository),
		users:    new(mocks.MockUserRepository),
		reviews:  &recordingProgress{},
		userID:   uuid.New(),
	}
	f.svc = services.NewSessionService(f.sessions, f.progress, f.users, f.reviews, services.SessionOptions{
		DefaultMinutes:        25,
		AbandonAppliesReviews: abandonAppliesReviews,
		PassThreshold:         0.6,
		Location:              time.UTC,
		Now:                   fixedClock,
	})
	return f
}

func (f *sessionFixture) inProgress() *models.Session {
	return &models.Session{
		ID:                     uuid.New(),
		UserID:                 f.userID,
		Type:                   models.SessionRegular,
		Status:                 models.SessionInProgress,
		PlannedDurationMinutes: 30,
		StartedAt:              fixedNow.Add(-20 * time.Minute),
	}
}

func TestSessionStart_Validation(t *testing.T) {
	f := newSessionFixture(true)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID, 4, models.SessionRegular)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = f.svc.Start(ctx, f.userID, 481, models.SessionRegular)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = f.svc.Start(ctx, f.userID, 30, models.SessionType("marathon"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	f.sessions.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestSessionStart_UsesDefaults(t *testing.T) {
	f := newSessionFixture(true)

	f.users.On("Get", mock.Anything, f.userID).Return(&models.User{ID: f.userID}, nil)
	f.sessions.On("Start", mock.Anything, mock.MatchedBy(func(s models.Session) bool {
		return s.PlannedDurationMinutes == 25 && s.Type == models.SessionRegular && s.StartedAt.Equal(fixedNow)
	})).Return(&models.Session{Status: models.SessionInProgress}, nil)

	got, err := f.svc.Start(context.Background(), f.userID, 0, "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, got.Status)
	f.sessions.AssertExpectations(t)
}

func TestSessionStart_ConflictWhenActive(t *testing.T) {
	f := newSessionFixture(true)

	f.users.On("Get", mock.Anything, f.userID).Return(&models.User{ID: f.userID}, nil)
	f.sessions.On("Start", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict)

	_, err := f.svc.Start(context.Background(), f.userID, 30, models.SessionDrill)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))
}

func TestSessionStart_UnknownUser(t *testing.T) {
	f := newSessionFixture(true)
	f.users.On("Get", mock.Anything, f.userID).Return(nil, nil)

	_, err := f.svc.Start(context.Background(), f.userID, 30, models.SessionRegular)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestSessionEnd_AdvancesStreakAndAppliesReviews(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	topic := uuid.New()

	ended := *sess
	ended.Status = models.SessionCompleted
	endedAt := fixedNow
	ended.EndedAt = &endedAt

	var advance repository.StreakAdvancer
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.sessions.On("Finish", mock.Anything, mock.MatchedBy(func(req models.FinishRequest) bool {
		return req.SessionID == sess.ID && req.Status == models.SessionCompleted && req.EndedAt.Equal(fixedNow)
	}), mock.Anything).Run(func(args mock.Arguments) {
		advance = args.Get(2).(repository.StreakAdvancer)
	}).Return(&ended, nil)
	f.sessions.On("Activities", mock.Anything, sess.ID).Return([]models.SessionActivity{
		{ActivityType: models.ActivityQuiz, TopicID: uuid.NullUUID{UUID: topic, Valid: true}, PerformanceData: models.PerformanceData{"score": 0.5}},
		{ActivityType: models.ActivityFeynmanDialogue, TopicID: uuid.NullUUID{UUID: topic, Valid: true}, PerformanceData: models.PerformanceData{"score": 0.9}},
	}, nil)

	got, err := f.svc.End(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)

	require.NotNil(t, advance)
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	next := advance(models.Streak{CurrentStreak: 2, LongestStreak: 2, LastSessionDate: &yesterday, TotalSessions: 4})
	assert.Equal(t, 3, next.CurrentStreak)

	require.Len(t, f.reviews.calls, 1)
	assert.Equal(t, topic, f.reviews.calls[0].topicID)
	assert.InDelta(t, 0.7, f.reviews.calls[0].outcome.Quality, 1e-9)
	assert.True(t, f.reviews.calls[0].outcome.Correct)
}

func TestSessionEnd_NotInProgress(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	sess.Status = models.SessionCompleted
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)

	_, err := f.svc.End(context.Background(), sess.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	assert.Contains(t, err.Error(), "already completed")
	f.sessions.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.reviews.calls)
}

func TestSessionEnd_PlannedSessionCannotFinish(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	sess.Status = models.SessionPlanned
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)

	_, err := f.svc.Abandon(context.Background(), sess.ID, "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	f.sessions.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionEnd_LosesRaceToConcurrentFinish(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.sessions.On("Finish", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrInvalidTransition)

	_, err := f.svc.End(context.Background(), sess.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	assert.Empty(t, f.reviews.calls)
}

func TestSessionEnd_UnknownSession(t *testing.T) {
	f := newSessionFixture(true)
	id := uuid.New()
	f.sessions.On("Get", mock.Anything, id).Return(nil, nil)

	_, err := f.svc.End(context.Background(), id)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestSessionAbandon_SkipsReviewsWhenDisabled(t *testing.T) {
	f := newSessionFixture(false)
	sess := f.inProgress()

	abandoned := *sess
	abandoned.Status = models.SessionAbandoned
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.sessions.On("Finish", mock.Anything, mock.MatchedBy(func(req models.FinishRequest) bool {
		return req.Status == models.SessionAbandoned && req.AbandonReason != nil && *req.AbandonReason == "tired"
	}), mock.Anything).Return(&abandoned, nil)

	got, err := f.svc.Abandon(context.Background(), sess.ID, "tired")
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, got.Status)
	f.sessions.AssertNotCalled(t, "Activities", mock.Anything, mock.Anything)
	assert.Empty(t, f.reviews.calls)
}

func TestSessionRecordActivity_RequiresInProgress(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	sess.Status = models.SessionCompleted
	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)

	_, err := f.svc.RecordActivity(context.Background(), services.RecordActivityRequest{
		SessionID:    sess.ID,
		ActivityType: models.ActivityQuiz,
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	f.sessions.AssertNotCalled(t, "OpenActivity", mock.Anything, mock.Anything)

	_, err = f.svc.RecordActivity(context.Background(), services.RecordActivityRequest{
		SessionID:    sess.ID,
		ActivityType: models.ActivityType("nap"),
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestSessionCompleteActivity_RejectsBadScore(t *testing.T) {
	f := newSessionFixture(true)

	_, err := f.svc.CompleteActivity(context.Background(), uuid.New(), uuid.New(), models.PerformanceData{"score": 1.4})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = f.svc.CompleteActivity(context.Background(), uuid.New(), uuid.New(), models.PerformanceData{"score": "great"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestSessionPlan_IncludesReviewWhenDue(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	dueAt := fixedNow.Add(-time.Hour)

	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.progress.On("DueForReview", mock.Anything, f.userID, fixedNow, 1).
		Return([]models.TopicProgress{{TopicID: uuid.New(), NextReview: &dueAt}}, nil)

	plan, err := f.svc.Plan(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, plan.IncludesReview)
	assert.Equal(t, models.ActivityDrill, plan.Items[0].ActivityType)
	assert.Equal(t, 30, plan.TotalDurationMinutes)
}

func TestSessionPlan_IgnoresRecordNotYetDue(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	later := fixedNow.Add(time.Hour)

	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.progress.On("DueForReview", mock.Anything, f.userID, fixedNow, 1).
		Return([]models.TopicProgress{{TopicID: uuid.New(), NextReview: &later}}, nil)

	plan, err := f.svc.Plan(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, plan.IncludesReview)
}

func TestSessionCompleteActivity_ChecksActivity(t *testing.T) {
	f := newSessionFixture(true)
	sess := f.inProgress()
	missing, closed, open := uuid.New(), uuid.New(), uuid.New()
	endedAt := fixedNow.Add(-5 * time.Minute)

	f.sessions.On("Get", mock.Anything, sess.ID).Return(sess, nil)
	f.sessions.On("GetActivity", mock.Anything, sess.ID, missing).Return(nil, nil)
	f.sessions.On("GetActivity", mock.Anything, sess.ID, closed).
		Return(&models.SessionActivity{ID: closed, SessionID: sess.ID, EndedAt: &endedAt}, nil)
	f.sessions.On("GetActivity", mock.Anything, sess.ID, open).
		Return(&models.SessionActivity{ID: open, SessionID: sess.ID}, nil)
	f.sessions.On("CompleteActivity", mock.Anything, sess.ID, open, models.PerformanceData{"score": 0.8}, fixedNow).
		Return(&models.SessionActivity{ID: open, SessionID: sess.ID, EndedAt: &fixedNow}, nil)

	_, err := f.svc.CompleteActivity(context.Background(), sess.ID, missing, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	_, err = f.svc.CompleteActivity(context.Background(), sess.ID, closed, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	got, err := f.svc.CompleteActivity(context.Background(), sess.ID, open, models.PerformanceData{"score": 0.8})
	require.NoError(t, err)
	assert.Equal(t, open, got.ID)
	f.sessions.AssertNumberOfCalls(t, "CompleteActivity", 1)
}

func TestSessionStreak_NoRow(t *testing.T) {
	f := newSessionFixture(true)
	f.sessions.On("GetStreak", mock.Anything, f.userID).Return(nil, nil)

	info, err := f.svc.Streak(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.StreakInfo{}, info)
}
