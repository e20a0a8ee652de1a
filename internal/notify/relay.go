package notify

import (
	"context"
	"errors"
	"time"

	"github.com/newdaybreak/careers/config"
	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// OutboxReader is the outbox view used by the relay.
type OutboxReader interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]types.Notification, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string, retryAt time.Time) error
	MarkUndeliverable(ctx context.Context, id string, cause string) error
}

// Relay moves committed notifications from the outbox to a Dispatcher. It
// polls on an interval and also wakes up when nudged. A failed entry is
// retried with exponential backoff and abandoned after maxAttempts failures.
type Relay struct {
	outbox       OutboxReader
	dispatcher   Dispatcher
	interval     time.Duration
	batchSize    int
	maxAttempts  int
	retryBackoff time.Duration
	maxBackoff   time.Duration
	log          logrus.FieldLogger
	wake         chan struct{}
	now          func() time.Time
}

func NewRelay(outbox OutboxReader, dispatcher Dispatcher, cfg config.RelayConfig, log logrus.FieldLogger) *Relay {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	batch := cfg.BatchSize
	if batch < 1 {
		batch = 50
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 8
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff < backoff {
		maxBackoff = backoff
	}
	return &Relay{
		outbox:       outbox,
		dispatcher:   dispatcher,
		interval:     interval,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		retryBackoff: backoff,
		maxBackoff:   maxBackoff,
		log:          log,
		wake:         make(chan struct{}, 1),
		now:          time.Now,
	}
}

// Nudge asks the relay to flush soon. It never blocks.
func (r *Relay) Nudge() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run flushes the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval.String()).Info("notification relay started")
	for {
		if _, err := r.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.WithError(err).Error("flush notification outbox")
		}

		select {
		case <-ctx.Done():
			r.log.Info("notification relay stopped")
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// Flush dispatches one batch of due notifications and returns how many were
// handed off. Failed entries are rescheduled or, once out of attempts, marked
// undeliverable.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListDue(ctx, r.now().UTC(), r.batchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, n := range pending {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}

		entry := r.log.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"application_id":  n.ApplicationID,
			"attempt":         n.Attempts + 1,
		})

		if err := r.dispatcher.Dispatch(ctx, n); err != nil {
			r.recordFailure(ctx, entry, n, err)
			continue
		}

		if err := r.outbox.MarkDispatched(ctx, n.ID); err != nil {
			entry.WithError(err).Error("mark notification dispatched")
			continue
		}
		metrics.Notification(metrics.NotificationDispatched)
		entry.Debug("notification dispatched")
		dispatched++
	}
	return dispatched, nil
}

func (r *Relay) recordFailure(ctx context.Context, entry *logrus.Entry, n types.Notification, cause error) {
	attempts := n.Attempts + 1
	if attempts >= r.maxAttempts {
		metrics.Notification(metrics.NotificationAbandoned)
		entry.WithError(cause).Error("notification undeliverable, giving up")
		if err := r.outbox.MarkUndeliverable(ctx, n.ID, cause.Error()); err != nil {
			entry.WithError(err).Error("record undeliverable notification")
		}
		return
	}

	retryAt := r.now().UTC().Add(r.backoff(attempts))
	metrics.Notification(metrics.NotificationFailed)
	entry.WithError(cause).WithField("retry_at", retryAt).Warn("dispatch notification")
	if err := r.outbox.MarkFailed(ctx, n.ID, cause.Error(), retryAt); err != nil {
		entry.WithError(err).Error("record notification failure")
	}
}

// backoff returns the wait after the given number of failed attempts.
func (r *Relay) backoff(attempts int) time.Duration {
	delay := r.retryBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= r.maxBackoff {
			return r.maxBackoff
		}
	}
	return delay
}
