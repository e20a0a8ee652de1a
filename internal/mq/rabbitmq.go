package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newdaybreak/careers/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient wraps a RabbitMQ connection/channel pair. The channel is
// shared, so publishes are serialized.
//
// Every topic gets three queues: the work queue, a "<topic>.retry" queue that
// holds rejected messages for the redelivery delay and dead-letters them back,
// and a "<topic>.dead" queue for messages that ran out of deliveries.
type RabbitMQClient struct {
	mu              sync.Mutex
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool
	prefetchCount   int
	policy          RedeliveryPolicy
	declared        map[string]bool
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig, policy RedeliveryPolicy) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		prefetchCount:   cfg.PrefetchCount,
		policy:          policy.withDefaults(),
		declared:        make(map[string]bool),
	}, nil
}

// Publish sends a persistent JSON message to the named queue.
func (r *RabbitMQClient) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", errors.New("rabbitmq topic is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareTopology(topic); err != nil {
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := attrs["notification_id"]
	if messageID == "" {
		messageID = newMessageID()
	}
	err := r.channel.PublishWithContext(ctx, "", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: r.deliveryMode(),
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes messages from the named queue. A failed message is
// rejected into the retry queue and comes back after the redelivery delay;
// after MaxDeliveries failures it is parked on the dead-letter queue.
func (r *RabbitMQClient) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if strings.TrimSpace(topic) == "" {
		return errors.New("rabbitmq topic is required")
	}

	r.mu.Lock()
	if err := r.declareTopology(topic); err != nil {
		r.mu.Unlock()
		return err
	}
	consumerTag := fmt.Sprintf("careers-notifier-%s", newMessageID())
	deliveries, err := r.channel.Consume(topic, consumerTag, false, false, false, false, nil)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
				Deliveries: int(rejectionCount(delivery.Headers, topic)) + 1,
			}
			if err := handler(ctx, message); err != nil {
				if err := r.reject(ctx, topic, delivery, message.Deliveries); err != nil {
					return err
				}
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) reject(ctx context.Context, topic string, delivery amqp.Delivery, deliveries int) error {
	if deliveries < r.policy.MaxDeliveries {
		return delivery.Nack(false, false)
	}

	r.mu.Lock()
	err := r.channel.PublishWithContext(ctx, "", DeadLetterTopic(topic), false, false, amqp.Publishing{
		ContentType:  delivery.ContentType,
		DeliveryMode: r.deliveryMode(),
		MessageId:    delivery.MessageId,
		Timestamp:    time.Now().UTC(),
		Headers:      delivery.Headers,
		Body:         delivery.Body,
	})
	r.mu.Unlock()
	if err != nil {
		return delivery.Nack(false, false)
	}
	return delivery.Ack(false)
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.queueDurable {
		return amqp.Persistent
	}
	return amqp.Transient
}

// declareTopology declares the work, retry and dead-letter queues of topic.
// Callers hold r.mu.
func (r *RabbitMQClient) declareTopology(topic string) error {
	if r.declared[topic] {
		return nil
	}
	for _, queue := range topologyFor(topic, r.policy) {
		if _, err := r.channel.QueueDeclare(queue.name, r.queueDurable, r.queueAutoDelete, false, false, queue.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue.name, err)
		}
	}
	r.declared[topic] = true
	return nil
}

type queueSpec struct {
	name string
	args amqp.Table
}

func retryQueue(topic string) string {
	return topic + ".retry"
}

func topologyFor(topic string, policy RedeliveryPolicy) []queueSpec {
	return []queueSpec{
		{
			name: topic,
			args: amqp.Table{
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": retryQueue(topic),
			},
		},
		{
			name: retryQueue(topic),
			args: amqp.Table{
				"x-message-ttl":             policy.Delay.Milliseconds(),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": topic,
			},
		},
		{name: DeadLetterTopic(topic)},
	}
}

// rejectionCount reads how many times the broker dead-lettered the message
// out of queue after a rejection.
func rejectionCount(headers amqp.Table, queue string) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, raw := range deaths {
		death, ok := raw.(amqp.Table)
		if !ok || death["queue"] != queue || death["reason"] != "rejected" {
			continue
		}
		switch count := death["count"].(type) {
		case int64:
			return count
		case int32:
			return int64(count)
		case int:
			return int64(count)
		}
	}
	return 0
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		if strings.HasPrefix(key, "x-") {
			continue
		}
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
