package jobs

import (
	"context"

	"github.com/vytor/learner/internal/services"
)

// ReviewDigestJob counts due reviews for every user.
type ReviewDigestJob struct {
	DigestService services.DigestService
}

func (j *ReviewDigestJob) Name() string {
	return "review_digest"
}

func (j *ReviewDigestJob) Run(ctx context.Context) error {
	_, err := j.DigestService.Run(ctx)
	return err
}
