package auth

import (
	"context"
	"time"
)

const (
	// DefaultSweepInterval is the steady-state pause between sweep cycles.
	DefaultSweepInterval = time.Hour
	// DefaultSweepBackoff is the retry pause after a failed cycle.
	DefaultSweepBackoff = 5 * time.Minute
)

// Sweeper is the background reclaimer for expired action tokens. It is pure
// housekeeping: Redeem checks expiry at read time on its own, so a missed
// sweep never causes an expired token to be accepted, it only defers
// storage cleanup.
type Sweeper struct {
	tokens   ActionTokens
	interval time.Duration
	backoff  time.Duration
	logger   Logger
	now      func() time.Time
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(interval, backoff time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSweeper(tokens ActionTokens, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		tokens:   tokens,
		interval: DefaultSweepInterval,
		backoff:  DefaultSweepBackoff,
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Run loops until the context is cancelled. A failed cycle is logged and
// retried after the shorter backoff interval; the loop itself never crashes.
func (s *Sweeper) Run(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Warn("token sweep failed, retrying in %s: %v", s.backoff, err)
			timer.Reset(s.backoff)
			continue
		}

		timer.Reset(s.interval)
	}
}

// SweepOnce runs a single reclaim cycle and returns the number of tokens
// removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	swept, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		s.logger.Info("swept %d expired action tokens", swept)
	}

	return swept, nil
}
