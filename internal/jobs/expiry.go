package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventExpirer expires pending events that ended without a decision.
type EventExpirer interface {
	ExpireStalePending(ctx context.Context) (int64, error)
}

// RegistrationExpirer expires pending requests for events that started.
type RegistrationExpirer interface {
	ExpireStarted(ctx context.Context) (int64, error)
}

// Sweeper periodically expires whatever time has overtaken.
type Sweeper struct {
	events        EventExpirer
	registrations RegistrationExpirer
	interval      time.Duration
	logger        *zap.Logger
}

func NewSweeper(events EventExpirer, registrations RegistrationExpirer, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		events:        events,
		registrations: registrations,
		interval:      interval,
		logger:        logger.Named("sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both expiries. A failure in one does not skip the other.
func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.registrations.ExpireStarted(ctx); err != nil {
		s.logger.Error("expire registrations", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("expired registrations", zap.Int64("count", n))
	}

	if n, err := s.events.ExpireStalePending(ctx); err != nil {
		s.logger.Error("expire pending events", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("expired pending events", zap.Int64("count", n))
	}
}
