// Package mq carries applicant notifications between the relay and the
// notifier worker over a pluggable broker.
package mq

import (
	"context"
	"time"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
	// Deliveries counts delivery attempts including this one, when the
	// broker reports it.
	Deliveries int
}

// RedeliveryPolicy controls what happens to a message whose handler fails:
// it is delivered again after Delay, and after MaxDeliveries failed
// deliveries it is moved to the topic's dead-letter destination.
type RedeliveryPolicy struct {
	Delay         time.Duration
	MaxDeliveries int
}

const (
	defaultRedeliveryDelay = 30 * time.Second
	defaultMaxDeliveries   = 10
)

func (p RedeliveryPolicy) withDefaults() RedeliveryPolicy {
	if p.Delay <= 0 {
		p.Delay = defaultRedeliveryDelay
	}
	if p.MaxDeliveries < 1 {
		p.MaxDeliveries = defaultMaxDeliveries
	}
	return p
}

// DeadLetterTopic names the destination for messages that ran out of
// deliveries.
func DeadLetterTopic(topic string) string {
	return topic + ".dead"
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
	name    string
}

// New constructs an MQ wrapper for the provided backend.
func New(name string, backend Backend) *MQ {
	return &MQ{backend: backend, name: name}
}

// Name returns the configured backend name.
func (m *MQ) Name() string {
	return m.name
}

// Publish sends a message to the named topic and returns its broker id.
func (m *MQ) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, topic, data, attrs)
}

// Subscribe consumes messages from the named topic until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return m.backend.Subscribe(ctx, topic, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
