package api

import (
	"net/http"

	"github.com/vytor/learner/internal/logger"
)

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	user, err := s.UserService.Create(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	user, err := s.UserService.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.UserService.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createTopicRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	topic, err := s.TopicService.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, topic)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.TopicService.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, topics)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "topicID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	topic, err := s.TopicService.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, topic)
}

// handleEnqueueDigest queues an out-of-schedule review digest.
func (s *Server) handleEnqueueDigest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := s.JobQueue.EnqueueReviewDigest(); err != nil {
		log.Warn("failed to enqueue review digest: %v", err)
		writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: errorDetail{
			Code:    "QUEUE_UNAVAILABLE",
			Message: err.Error(),
		}})
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "queued"})
}
