package jobs

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vytor/learner/internal/logger"
)

// Scheduler triggers recurring jobs on a cron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	queue     JobQueue
	log       *logger.Logger
}

// NewScheduler registers the review digest on digestCron, evaluated in loc.
func NewScheduler(queue JobQueue, digestCron string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		queue:     queue,
		log:       logger.Default().WithPrefix("scheduler"),
	}
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Cron(digestCron).Tag("review_digest").Do(s.enqueueDigest); err != nil {
		return nil, fmt.Errorf("schedule review digest %q: %w", digestCron, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler with %d jobs", len(s.scheduler.Jobs()))
	s.scheduler.StartAsync()
	s.log.Info("next review digest at %s", s.NextRun().Format(time.RFC3339))
}

// Stop terminates the scheduler. Jobs already handed to the queue keep running.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

// NextRun reports when the review digest fires next.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

func (s *Scheduler) enqueueDigest() {
	if err := s.queue.EnqueueReviewDigest(); err != nil {
		s.log.Warn("failed to enqueue review digest: %v", err)
		return
	}
	s.log.Debug("review digest enqueued")
}
