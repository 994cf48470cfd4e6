package jobs

import (
	"github.com/vytor/learner/internal/services"
	"github.com/vytor/learner/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	digestPool    *worker.Pool
	digestService services.DigestService
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(digestPool *worker.Pool, digestService services.DigestService) JobQueue {
	return &WorkerQueue{
		digestPool:    digestPool,
		digestService: digestService,
	}
}

func (q *WorkerQueue) EnqueueReviewDigest() error {
	return q.digestPool.Submit(&ReviewDigestJob{DigestService: q.digestService})
}
