package session

import (
	"context"
	"errors"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Sweeper periodically ends sessions whose idle time alone has already used
// up their budget. The next request would reject them anyway; sweeping just
// makes the store reflect that without waiting for one.
type Sweeper struct {
	store     repository.SessionStore
	clock     clockwork.Clock
	log       *zap.Logger
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewSweeper(store repository.SessionStore, clock clockwork.Clock, interval time.Duration, log *zap.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, clock: clock, interval: interval, log: log}
}

// Start schedules Sweep every interval until Stop is called.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("[session.Sweeper] sweep failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.scheduler = sched
	sched.Start()
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// Sweep ends every active session whose budget is exhausted as of now and
// returns how many it ended. Sessions that are still within budget are not written.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	sessions, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	ended := 0
	for _, candidate := range sessions {
		outcome := Accumulate(*candidate, s.clock.Now())
		if outcome.Decision != Exhausted {
			continue
		}

		next := outcome.Session
		if err := s.store.Save(ctx, &next); err != nil {
			// a concurrent request got there first; it will do the accounting
			if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return ended, err
		}
		ended++
	}

	if ended > 0 {
		s.log.Info("[session.Sweeper] ended exhausted sessions", zap.Int("count", ended))
	}
	return ended, nil
}
