package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Sweeper advances lagging auction statuses
type Sweeper interface {
	SweepStatuses(ctx context.Context) (int, error)
}

// Locker elects the single instance allowed to sweep during one interval
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// SweepScheduler runs the status sweep on a fixed interval. Reads already
// resolve statuses lazily; the sweep only keeps stored statuses fresh for
// consumers that read the table directly.
type SweepScheduler struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       conc.WaitGroup
}

type SweepSchedulerParams struct {
	Sweeper  Sweeper
	Locker   Locker
	Interval time.Duration
	LockTTL  time.Duration
	Logger   zerolog.Logger
}

func NewSweepScheduler(params SweepSchedulerParams) *SweepScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 || lockTTL > interval {
		lockTTL = interval
	}

	return &SweepScheduler{
		sweeper:  params.Sweeper,
		locker:   params.Locker,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   params.Logger.With().Str("component", "sweep_scheduler").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scheduler loop
func (s *SweepScheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting sweep scheduler")
	s.wg.Go(s.schedulerLoop)
}

// Stop gracefully stops the scheduler
func (s *SweepScheduler) Stop() {
	s.logger.Info().Msg("Stopping sweep scheduler")
	s.cancel()
	s.wg.Wait()

	if s.locker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.locker.Release(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release sweep lock")
	}
}

// schedulerLoop runs the main scheduling loop
func (s *SweepScheduler) schedulerLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

// sweep runs one pass if this instance wins the interval's lock
func (s *SweepScheduler) sweep() {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(s.ctx, s.lockTTL)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to acquire sweep lock")
			return
		}
		if !acquired {
			s.logger.Debug().Msg("Another instance holds the sweep lock")
			return
		}
	}

	count, err := s.sweeper.SweepStatuses(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed")
		return
	}

	if count > 0 {
		s.logger.Debug().Int("count", count).Msg("Sweep advanced auctions")
	}
}
