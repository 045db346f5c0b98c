package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const pingTimeout = 30 * time.Second

// Pinger is anything that can check the annotation service is awake.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler periodically pings the annotation service so its host does not
// put it to sleep between rides.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pinger    Pinger
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(pinger Pinger, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		pinger:    pinger,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the keep-alive job and starts the underlying scheduler.
// A zero interval disables it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler: keep-alive disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.ping)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("scheduler: keep-alive started", "interval", s.interval)
	return nil
}

func (s *Scheduler) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		s.log.Warnw("scheduler: keep-alive ping failed", "error", err)
		return
	}
	s.log.Debug("scheduler: keep-alive ping ok")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
