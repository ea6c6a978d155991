// Package jobs runs the background workers: the outbox dispatcher that fans
// committed notifications out, and the sweeper that expires stale events and
// registrations.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"go.uber.org/zap"
)

// Deliverer fans a payload out to recipients.
type Deliverer interface {
	Deliver(ctx context.Context, payload notify.Payload, recipients []uint) models.DeliveryStats
}

// Resolver turns a stored audience into user ids.
type Resolver interface {
	Resolve(ctx context.Context, audience models.Audience) ([]uint, error)
}

type DispatcherConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBackoff   time.Duration // doubled per attempt
	StaleAfter     time.Duration // processing rows claimed earlier than this are released
	ProcessTimeout time.Duration // bounds the work on one claimed message, shutdown included
}

// Dispatcher drains the outbox. Messages are claimed with a conditional
// update, so running several dispatchers against one database is safe.
type Dispatcher struct {
	outbox    repositories.OutboxRepository
	resolver  Resolver
	deliverer Deliverer
	reports   repositories.DeliveryReportRepository
	wake      <-chan struct{}
	cfg       DispatcherConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher builds a dispatcher. reports and wake may be nil.
func NewDispatcher(
	outbox repositories.OutboxRepository,
	resolver Resolver,
	deliverer Deliverer,
	reports repositories.DeliveryReportRepository,
	wake <-chan struct{},
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 10 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		outbox:    outbox,
		resolver:  resolver,
		deliverer: deliverer,
		reports:   reports,
		wake:      wake,
		cfg:       cfg,
		logger:    logger.Named("outbox"),
		now:       time.Now,
	}
}

// Run processes due messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("batch_size", d.cfg.BatchSize),
	)
	if n, err := d.outbox.ReleaseStale(ctx, d.now().Add(-d.cfg.StaleAfter)); err != nil {
		d.logger.Error("release stale outbox messages", zap.Error(err))
	} else if n > 0 {
		d.logger.Warn("released stale outbox messages", zap.Int64("count", n))
	}

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		d.drain(ctx)
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopping")
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// drain keeps processing batches while full batches come back.
func (d *Dispatcher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := d.ProcessBatch(ctx)
		if err != nil {
			d.logger.Error("process outbox batch", zap.Error(err))
			return
		}
		if n < d.cfg.BatchSize {
			return
		}
	}
}

// ProcessBatch handles up to BatchSize due messages and returns how many
// were due.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := d.outbox.ListDue(ctx, d.now(), d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due outbox messages: %w", err)
	}
	for i := range messages {
		if ctx.Err() != nil {
			break
		}
		d.process(ctx, &messages[i])
	}
	return len(messages), nil
}

var errNobodySaved = errors.New("no notification could be saved")

func (d *Dispatcher) process(ctx context.Context, msg *models.OutboxMessage) {
	log := d.logger.With(zap.Uint("outbox_id", msg.ID), zap.String("kind", msg.Kind))

	claimed, err := d.outbox.Claim(ctx, msg.ID, msg.Attempts, d.now())
	if err != nil {
		log.Error("claim outbox message", zap.Error(err))
		return
	}
	if !claimed {
		log.Debug("outbox message claimed elsewhere")
		return
	}

	// A claimed message is carried to done, retry or failed even when ctx is
	// cancelled, otherwise it sits in processing until the stale release.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.ProcessTimeout)
	defer cancel()

	attempt := msg.Attempts + 1
	started := d.now()

	payload, audience, err := notify.DecodeOutboxMessage(msg)
	if err != nil {
		log.Error("undecodable outbox message", zap.Error(err))
		d.fail(ctx, msg.ID, err)
		return
	}

	recipients, err := d.resolver.Resolve(ctx, audience)
	if err != nil {
		d.retryOrFail(ctx, log, msg.ID, attempt, fmt.Errorf("resolve audience: %w", err))
		return
	}

	stats := d.deliverer.Deliver(ctx, payload, recipients)
	d.report(ctx, log, msg, eventIDOf(payload, audience), audience.Kind, attempt, stats, started)

	if stats.Total > 0 && stats.DBSaved == 0 {
		d.retryOrFail(ctx, log, msg.ID, attempt, errNobodySaved)
		return
	}
	if err := d.outbox.MarkDone(ctx, msg.ID, d.now()); err != nil {
		log.Error("mark outbox message done", zap.Error(err))
		return
	}
	log.Info("outbox message delivered",
		zap.Int("attempt", attempt),
		zap.Int("recipients", stats.Total),
		zap.Int("db_saved", stats.DBSaved),
		zap.Int("with_push", stats.WithPush),
	)
}

func (d *Dispatcher) retryOrFail(ctx context.Context, log *zap.Logger, id uint, attempt int, cause error) {
	if attempt >= d.cfg.MaxAttempts {
		log.Error("outbox message failed permanently", zap.Int("attempt", attempt), zap.Error(cause))
		d.fail(ctx, id, cause)
		return
	}

	next := d.now().Add(d.backoff(attempt))
	if err := d.outbox.MarkRetry(ctx, id, next, cause.Error()); err != nil {
		log.Error("schedule outbox retry", zap.Error(err))
		return
	}
	log.Warn("outbox message will be retried", zap.Int("attempt", attempt), zap.Time("next_attempt_at", next), zap.Error(cause))
}

func (d *Dispatcher) fail(ctx context.Context, id uint, cause error) {
	if err := d.outbox.MarkFailed(ctx, id, d.now(), cause.Error()); err != nil {
		d.logger.Error("mark outbox message failed", zap.Uint("outbox_id", id), zap.Error(err))
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.cfg.RetryBackoff
	for i := 1; i < attempt && delay < time.Hour; i++ {
		delay *= 2
	}
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

func (d *Dispatcher) report(ctx context.Context, log *zap.Logger, msg *models.OutboxMessage, eventID uint, kind models.AudienceKind, attempt int, stats models.DeliveryStats, started time.Time) {
	if d.reports == nil {
		return
	}
	report := &models.DeliveryReport{
		OutboxID:         msg.ID,
		NotificationType: msg.Kind,
		AudienceKind:     kind,
		EventID:          eventID,
		Attempt:          attempt,
		Stats:            stats,
		StartedAt:        started,
		FinishedAt:       d.now(),
	}
	if err := d.reports.Insert(ctx, report); err != nil {
		log.Warn("archive delivery report", zap.Error(err))
	}
}

// eventIDOf finds the event a message is about. Payload data went through
// JSON, so numbers come back as float64.
func eventIDOf(payload notify.Payload, audience models.Audience) uint {
	if audience.EventID != 0 {
		return audience.EventID
	}
	if id, ok := payload.Data["event_id"].(float64); ok && id > 0 {
		return uint(id)
	}
	return 0
}
