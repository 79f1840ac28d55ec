// Package scheduler runs the node's housekeeping jobs (RTC resync,
// measurement retention) outside the control loops.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"fan_controller/internal/logger"
)

// Job is a periodic task. Errors are logged; the job keeps its schedule.
type Job func(ctx context.Context) error

// Scheduler wraps a gocron scheduler whose jobs share a context that is
// cancelled on Stop.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Logger
}

// New creates a stopped scheduler.
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
	}
}

// Add schedules job every interval. The first run happens one interval
// after Start, and runs never overlap.
func (s *Scheduler) Add(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: job %s: interval must be positive, got %s", name, every)
	}
	_, err := s.scheduler.Every(every).Tag(name).WaitForSchedule().SingletonMode().Do(func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.log.Warnw("job_failed", "job", name, "err", err)
			return
		}
		s.log.Debugw("job_done", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("scheduler: job %s: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.log.Infow("scheduler_started", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.StartAsync()
}

// Stop cancels running jobs and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
