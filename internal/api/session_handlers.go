package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/services"
)

type startSessionRequest struct {
	PlannedDurationMinutes int                `json:"planned_duration_minutes"`
	SessionType            models.SessionType `json:"session_type"`
}

type recordActivityRequest struct {
	ActivityType    models.ActivityType    `json:"activity_type"`
	TopicID         *uuid.UUID             `json:"topic_id"`
	ContentID       *uuid.UUID             `json:"content_id"`
	PerformanceData models.PerformanceData `json:"performance_data"`
}

type completeActivityRequest struct {
	PerformanceData models.PerformanceData `json:"performance_data"`
}

type abandonSessionRequest struct {
	Reason string `json:"reason"`
}

type finishedSessionResponse struct {
	Session *models.Session        `json:"session"`
	Summary *models.SessionSummary `json:"summary"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	sess, err := s.SessionService.Start(r.Context(), user.ID, req.PlannedDurationMinutes, req.SessionType)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sess)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	limit, err := intQuery(r, "limit", 10)
	if err != nil {
		handleError(w, r, err)
		return
	}
	includeAbandoned, err := boolQuery(r, "include_abandoned")
	if err != nil {
		handleError(w, r, err)
		return
	}

	sessions, err := s.SessionService.History(r.Context(), models.HistoryFilter{
		UserID:           user.ID,
		Limit:            limit,
		IncludeAbandoned: includeAbandoned,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sessions)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	sess, err := s.SessionService.Current(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, sessionFromContext(r.Context()))
}

func (s *Server) handleSessionPlan(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	plan, err := s.SessionService.Plan(r.Context(), sess.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	summary, err := s.SessionService.Summary(r.Context(), sess.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	activities, err := s.SessionService.Activities(r.Context(), sess.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activities)
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req recordActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	activity, err := s.SessionService.RecordActivity(r.Context(), services.RecordActivityRequest{
		SessionID:       sess.ID,
		ActivityType:    req.ActivityType,
		TopicID:         req.TopicID,
		ContentID:       req.ContentID,
		PerformanceData: req.PerformanceData,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, activity)
}

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	activityID, err := uuidParam(r, "activityID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req completeActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	activity, err := s.SessionService.CompleteActivity(r.Context(), sess.ID, activityID, req.PerformanceData)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activity)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	ended, err := s.SessionService.End(r.Context(), sess.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.writeFinished(w, r, ended)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req abandonSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	abandoned, err := s.SessionService.Abandon(r.Context(), sess.ID, req.Reason)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.writeFinished(w, r, abandoned)
}

func (s *Server) writeFinished(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	summary, err := s.SessionService.Summary(r.Context(), sess.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, finishedSessionResponse{Session: sess, Summary: summary})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	info, err := s.SessionService.Streak(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}
