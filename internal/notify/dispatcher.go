package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// Dispatcher hands a pending notification to its transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, n types.Notification) error
}

// Publisher is the subset of the message queue used for dispatch.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// DeliveryRecorder marks notifications as delivered.
type DeliveryRecorder interface {
	MarkDelivered(ctx context.Context, id string) error
}

// QueueDispatcher publishes notifications for the notifier worker.
type QueueDispatcher struct {
	queue Publisher
	topic string
}

func NewQueueDispatcher(queue Publisher, topic string) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, topic: topic}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, n types.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	attrs := map[string]string{
		"notification_id": n.ID,
		"application_id":  strconv.FormatInt(n.ApplicationID, 10),
	}
	if _, err := d.queue.Publish(ctx, d.topic, data, attrs); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// MailDispatcher sends notifications directly when no broker is configured.
type MailDispatcher struct {
	mailer   Mailer
	recorder DeliveryRecorder
	log      logrus.FieldLogger
}

func NewMailDispatcher(mailer Mailer, recorder DeliveryRecorder, log logrus.FieldLogger) *MailDispatcher {
	return &MailDispatcher{mailer: mailer, recorder: recorder, log: log}
}

func (d *MailDispatcher) Dispatch(ctx context.Context, n types.Notification) error {
	if err := d.mailer.Send(ctx, n.Email()); err != nil {
		return err
	}
	metrics.Notification(metrics.NotificationDelivered)

	// Sent already: report success so the relay does not resend.
	if err := d.recorder.MarkDelivered(ctx, n.ID); err != nil {
		d.log.WithError(err).WithField("notification_id", n.ID).Warn("mark notification delivered")
	}
	return nil
}
