package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/learner/internal/metrics"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(metricsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{userID}", s.handleGetUser)
		r.Delete("/users/{userID}", s.handleDeleteUser)

		r.Post("/topics", s.handleCreateTopic)
		r.Get("/topics", s.handleListTopics)
		r.Get("/topics/{topicID}", s.handleGetTopic)

		r.Post("/digest", s.handleEnqueueDigest)

		r.Group(func(r chi.Router) {
			r.Use(s.userMiddleware)

			r.Get("/progress", s.handleListProgress)
			r.Get("/progress/due", s.handleDueProgress)
			r.Get("/progress/{topicID}", s.handleGetProgress)
			r.Post("/progress/{topicID}/outcomes", s.handleRecordOutcome)

			r.Post("/quiz-attempts", s.handleSubmitQuizAttempt)
			r.Get("/quiz-attempts", s.handleListQuizAttempts)

			r.Get("/streak", s.handleStreak)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.handleStartSession)
				r.Get("/", s.handleSessionHistory)
				r.Get("/current", s.handleCurrentSession)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Use(s.sessionMiddleware)
					r.Get("/", s.handleGetSession)
					r.Get("/plan", s.handleSessionPlan)
					r.Get("/summary", s.handleSessionSummary)
					r.Get("/activities", s.handleListActivities)
					r.Post("/activities", s.handleRecordActivity)
					r.Post("/activities/{activityID}/complete", s.handleCompleteActivity)
					r.Post("/end", s.handleEndSession)
					r.Post("/abandon", s.handleAbandonSession)
				})
			})
		})
	})
	return r
}
