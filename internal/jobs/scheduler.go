package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler is a thin wrapper around recurring interval timers. Intervals
// run from scheduler start, not from wall-clock boundaries; drift across
// restarts is not compensated.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
	}
}

// AddEvery registers fn to run once per interval, starting one interval
// from scheduler start.
func (s *Scheduler) AddEvery(interval time.Duration, fn func()) error {
	_, err := s.cron.AddFunc("@every "+interval.String(), fn)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels all timers and returns once running jobs have finished or
// the timeout elapses.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler jobs still running at stop timeout")
	}
}
