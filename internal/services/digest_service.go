package services

import (
	"context"
	"time"

	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/metrics"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

// DigestReport is the outcome of one review digest run.
type DigestReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Users       []models.DueCount `json:"users"`
	TotalDue    int               `json:"total_due"`
}

// DigestService summarizes due reviews across all users. It only reads.
type DigestService interface {
	Run(ctx context.Context) (*DigestReport, error)
}

type digestService struct {
	progress repository.ProgressRepository
	now      func() time.Time
}

// NewDigestService creates a new DigestService
func NewDigestService(progress repository.ProgressRepository, now func() time.Time) DigestService {
	if now == nil {
		now = time.Now
	}
	return &digestService{progress: progress, now: now}
}

func (s *digestService) Run(ctx context.Context) (*DigestReport, error) {
	log := logger.FromContext(ctx).WithPrefix("digest")

	now := s.now().UTC()
	counts, err := s.progress.CountDueByUser(ctx, now)
	if err != nil {
		log.Error("failed to count due reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}

	report := &DigestReport{GeneratedAt: now, Users: counts}
	if report.Users == nil {
		report.Users = []models.DueCount{}
	}
	for _, c := range counts {
		report.TotalDue += c.Due
		log.Info("reviews due: user_id=%s, due=%d", c.UserID, c.Due)
	}

	metrics.ReviewsDue.Set(float64(report.TotalDue))
	metrics.DigestUsers.Set(float64(len(counts)))
	log.Info("digest complete: users=%d, total_due=%d", len(counts), report.TotalDue)
	return report, nil
}
