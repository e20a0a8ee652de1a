package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/internal/mq"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// DeliveryStore is the outbox view used by the worker.
type DeliveryStore interface {
	Get(ctx context.Context, id string) (types.Notification, error)
	DeliveryRecorder
}

// Subscriber is the subset of the message queue used by the worker.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler mq.Handler) error
}

// Worker consumes queued notifications and sends them. Redelivered messages
// for notifications already delivered are acknowledged without sending.
type Worker struct {
	outbox DeliveryStore
	mailer Mailer
	log    logrus.FieldLogger
}

func NewWorker(outbox DeliveryStore, mailer Mailer, log logrus.FieldLogger) *Worker {
	return &Worker{outbox: outbox, mailer: mailer, log: log}
}

// Run consumes topic until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, queue Subscriber, topic string) error {
	w.log.WithField("topic", topic).Info("notifier worker started")
	err := queue.Subscribe(ctx, topic, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle processes one message. A returned error requests redelivery.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	var payload types.Notification
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ID == "" {
		w.log.WithField("message_id", msg.ID).Error("discard malformed notification message")
		return nil
	}

	entry := w.log.WithFields(logrus.Fields{
		"notification_id": payload.ID,
		"application_id":  payload.ApplicationID,
		"delivery":        msg.Deliveries,
	})

	current, err := w.outbox.Get(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			entry.Warn("discard notification missing from outbox")
			return nil
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if current.Status == types.NotificationDelivered {
		metrics.Notification(metrics.NotificationSkipped)
		entry.Debug("notification already delivered")
		return nil
	}

	if err := w.mailer.Send(ctx, current.Email()); err != nil {
		metrics.Notification(metrics.NotificationFailed)
		entry.WithError(err).Warn("send notification")
		return err
	}
	metrics.Notification(metrics.NotificationDelivered)

	if err := w.outbox.MarkDelivered(ctx, current.ID); err != nil {
		entry.WithError(err).Error("mark notification delivered")
	}
	entry.Info("notification delivered")
	return nil
}
