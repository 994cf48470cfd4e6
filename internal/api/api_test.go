package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/learner/internal/api"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository/sqlstore"
	"github.com/vytor/learner/internal/review"
	"github.com/vytor/learner/internal/services"
	"github.com/vytor/learner/internal/testutil"
	"github.com/vytor/learner/internal/testutil/mocks"
)

type testServer struct {
	*httptest.Server
	queue *mocks.MockJobQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := testutil.NewTestDB(t)

	users := sqlstore.NewUserRepository(database)
	topics := sqlstore.NewTopicRepository(database)
	progressRepo := sqlstore.NewProgressRepository(database)
	policy := review.DefaultPolicy()
	progress := services.NewProgressService(progressRepo, users, topics, policy, 3, nil)
	queue := new(mocks.MockJobQueue)

	srv := &api.Server{
		DB:              database,
		UserService:     services.NewUserService(users),
		TopicService:    services.NewTopicService(topics),
		ProgressService: progress,
		SessionService: services.NewSessionService(sqlstore.NewSessionRepository(database), progressRepo, users, progress,
			services.SessionOptions{DefaultMinutes: 30, AbandonAppliesReviews: true, PassThreshold: policy.PassThreshold}),
		QuizService: services.NewQuizService(sqlstore.NewQuizAttemptRepository(database), users, topics, policy, 3, nil),
		JobQueue:    queue,
	}

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		testutil.MustClose(t, database)
	})
	return &testServer{Server: ts, queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path string, userID uuid.UUID, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set(api.UserHeader, userID.String())
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (ts *testServer) createUser(t *testing.T) models.User {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/users", uuid.Nil, map[string]string{
		"email":        uuid.NewString() + "@example.com",
		"display_name": "Learner",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.User](t, body)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/healthz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, _ = ts.do(t, http.MethodGet, "/readyz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestUserHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/streak", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decode[errorResponse](t, body).Error.Code)

	status, _ = ts.do(t, http.MethodGet, "/api/streak", uuid.New(), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUserAndTopicEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	status, body := ts.do(t, http.MethodGet, "/api/users/"+user.ID.String(), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.Email, decode[models.User](t, body).Email)

	status, body = ts.do(t, http.MethodGet, "/api/users/not-a-uuid", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResponse](t, body).Error.Code)

	status, body = ts.do(t, http.MethodGet, "/api/topics/"+uuid.NewString(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, body).Error.Code)

	status, _ = ts.do(t, http.MethodPost, "/api/topics", uuid.Nil, map[string]string{"name": "Vectors"})
	assert.Equal(t, http.StatusCreated, status)
	status, body = ts.do(t, http.MethodPost, "/api/topics", uuid.Nil, map[string]string{"name": "Vectors"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", decode[errorResponse](t, body).Error.Code)

	status, _ = ts.do(t, http.MethodDelete, "/api/users/"+user.ID.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ts.do(t, http.MethodGet, "/api/users/"+user.ID.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	status, body := ts.do(t, http.MethodPost, "/api/topics", uuid.Nil, map[string]string{"name": "Limits " + uuid.NewString()})
	require.Equal(t, http.StatusCreated, status)
	topic := decode[models.Topic](t, body)

	status, body = ts.do(t, http.MethodPost, "/api/sessions", user.ID, map[string]any{"planned_duration_minutes": 20})
	require.Equal(t, http.StatusCreated, status, string(body))
	sess := decode[models.Session](t, body)
	assert.Equal(t, models.SessionInProgress, sess.Status)
	assert.Equal(t, models.SessionRegular, sess.Type)

	status, body = ts.do(t, http.MethodPost, "/api/sessions", user.ID, map[string]any{})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", decode[errorResponse](t, body).Error.Code)

	base := "/api/sessions/" + sess.ID.String()

	status, body = ts.do(t, http.MethodGet, base+"/plan", user.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 20, decode[models.SessionPlan](t, body).TotalDurationMinutes)

	status, body = ts.do(t, http.MethodPost, base+"/activities", user.ID, map[string]any{
		"activity_type": "quiz",
		"topic_id":      topic.ID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	activity := decode[models.SessionActivity](t, body)

	status, body = ts.do(t, http.MethodPost, base+"/activities/"+activity.ID.String()+"/complete", user.ID, map[string]any{
		"performance_data": map[string]any{"score": 0.9},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = ts.do(t, http.MethodPost, base+"/end", user.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	finished := decode[struct {
		Session models.Session        `json:"session"`
		Summary models.SessionSummary `json:"summary"`
	}](t, body)
	assert.Equal(t, models.SessionCompleted, finished.Session.Status)
	assert.Equal(t, 1, finished.Summary.ActivitiesCompleted)
	require.NotNil(t, finished.Summary.Streak)
	assert.Equal(t, 1, finished.Summary.Streak.CurrentStreak)

	status, body = ts.do(t, http.MethodPost, base+"/end", user.ID, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", decode[errorResponse](t, body).Error.Code)

	status, body = ts.do(t, http.MethodGet, "/api/progress/"+topic.ID.String(), user.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decode[models.TopicProgress](t, body).IntervalDays)

	status, body = ts.do(t, http.MethodGet, "/api/sessions?limit=5", user.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Session](t, body), 1)

	status, body = ts.do(t, http.MethodGet, "/api/streak", user.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[models.StreakInfo](t, body).TotalSessions)

	status, _ = ts.do(t, http.MethodGet, "/api/sessions/current", user.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionsAreScopedToCaller(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.createUser(t)
	other := ts.createUser(t)

	status, body := ts.do(t, http.MethodPost, "/api/sessions", owner.ID, map[string]any{"session_type": "drill"})
	require.Equal(t, http.StatusCreated, status)
	sess := decode[models.Session](t, body)

	status, _ = ts.do(t, http.MethodGet, "/api/sessions/"+sess.ID.String(), other.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/abandon", other.ID, map[string]string{"reason": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.do(t, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/abandon", owner.ID, map[string]string{"reason": "busy"})
	require.Equal(t, http.StatusOK, status, string(body))
}

func TestRecordOutcomeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	status, body := ts.do(t, http.MethodPost, "/api/topics", uuid.Nil, map[string]string{"name": "Matrices " + uuid.NewString()})
	require.Equal(t, http.StatusCreated, status)
	topic := decode[models.Topic](t, body)
	path := "/api/progress/" + topic.ID.String() + "/outcomes"

	status, body = ts.do(t, http.MethodPost, path, user.ID, map[string]any{"correct": true})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResponse](t, body).Error.Code)

	status, _ = ts.do(t, http.MethodPost, path, user.ID, map[string]any{"correct": true, "quality": 1.7})
	assert.Equal(t, http.StatusBadRequest, status)

	nextYear := time.Now().UTC().AddDate(1, 0, 0)
	status, body = ts.do(t, http.MethodPost, path, user.ID, map[string]any{"correct": true, "quality": 0.9, "practiced_at": nextYear})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResponse](t, body).Error.Code)

	practiced := time.Now().UTC().Add(-48 * time.Hour)
	status, body = ts.do(t, http.MethodPost, path, user.ID, map[string]any{"correct": true, "quality": 0.9, "practiced_at": practiced})
	require.Equal(t, http.StatusOK, status, string(body))
	p := decode[models.TopicProgress](t, body)
	assert.Equal(t, 3, p.IntervalDays)

	status, body = ts.do(t, http.MethodGet, "/api/progress/due?limit=10", user.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.TopicProgress](t, body), 0)

	status, _ = ts.do(t, http.MethodPost, "/api/progress/"+uuid.NewString()+"/outcomes", user.ID, map[string]any{"correct": true, "quality": 0.5})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDigestEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.On("EnqueueReviewDigest").Return(nil).Once()

	status, _ := ts.do(t, http.MethodPost, "/api/digest", uuid.Nil, nil)
	assert.Equal(t, http.StatusAccepted, status)
	ts.queue.AssertExpectations(t)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", uuid.Nil, nil)

	status, body := ts.do(t, http.MethodGet, "/metrics", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), `learner_http_requests_total{method="GET",route="/healthz",status="200"}`))
}
