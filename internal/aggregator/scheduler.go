package aggregator

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler recomputes the previous aligned window on a cron cadence.
type Scheduler struct {
	aggregator *Aggregator
	cron       *cron.Cron
	window     time.Duration
	logger     *zap.Logger
}

func NewScheduler(aggregator *Aggregator, schedule string, window time.Duration, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		aggregator: aggregator,
		cron:       cron.New(),
		window:     window,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	start, end := AlignedWindow(time.Now().UTC(), s.window)
	if err := s.aggregator.Recompute(start, end); err != nil {
		s.logger.Error("Scheduled recompute failed",
			zap.Time("window_start", start),
			zap.Time("window_end", end),
			zap.Error(err))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Aggregation scheduler started")
}

// Stop waits for an in-flight recompute to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
