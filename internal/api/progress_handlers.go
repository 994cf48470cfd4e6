package api

import (
	"net/http"
	"time"

	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/review"
)

type outcomeRequest struct {
	Correct     *bool      `json:"correct"`
	Quality     *float64   `json:"quality"`
	PracticedAt *time.Time `json:"practiced_at"`
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	records, err := s.ProgressService.List(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

func (s *Server) handleDueProgress(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	limit, err := intQuery(r, "limit", 20)
	if err != nil {
		handleError(w, r, err)
		return
	}

	records, err := s.ProgressService.Due(r.Context(), user.ID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	topicID, err := uuidParam(r, "topicID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	p, err := s.ProgressService.Get(r.Context(), user.ID, topicID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	topicID, err := uuidParam(r, "topicID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req outcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Correct == nil {
		handleError(w, r, errors.NewValidationError("correct", "is required"))
		return
	}
	if req.Quality == nil {
		handleError(w, r, errors.NewValidationError("quality", "is required"))
		return
	}
	var practicedAt time.Time
	if req.PracticedAt != nil {
		practicedAt = *req.PracticedAt
	}

	p, err := s.ProgressService.RecordOutcome(r.Context(), user.ID, topicID,
		review.Outcome{Correct: *req.Correct, Quality: *req.Quality}, practicedAt)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleSubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var attempt models.QuizAttempt
	if err := decodeJSON(r, &attempt); err != nil {
		handleError(w, r, err)
		return
	}
	attempt.UserID = user.ID

	stored, err := s.QuizService.SubmitAttempt(r.Context(), attempt)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, stored)
}

func (s *Server) handleListQuizAttempts(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	limit, err := intQuery(r, "limit", 20)
	if err != nil {
		handleError(w, r, err)
		return
	}

	attempts, err := s.QuizService.List(r.Context(), user.ID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, attempts)
}
