package mq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const memoryQueueSize = 256

// MemoryBackend is an in-process broker. A message whose handler fails is put
// back on its queue after the policy delay; once it has failed MaxDeliveries
// times it is kept aside as a dead letter instead.
type MemoryBackend struct {
	policy RedeliveryPolicy

	mu     sync.Mutex
	queues map[string]chan Message
	dead   map[string][]Message
	closed chan struct{}
	once   sync.Once
}

func NewMemoryBackend(policy RedeliveryPolicy) *MemoryBackend {
	return &MemoryBackend{
		policy: policy.withDefaults(),
		queues: make(map[string]chan Message),
		dead:   make(map[string][]Message),
		closed: make(chan struct{}),
	}
}

func (m *MemoryBackend) queue(topic string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[topic]
	if !ok {
		q = make(chan Message, memoryQueueSize)
		m.queues[topic] = q
	}
	return q
}

// Publish enqueues a message, blocking while the queue is full.
func (m *MemoryBackend) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if topic == "" {
		return "", errors.New("memory topic is required")
	}
	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case m.queue(topic) <- msg:
		return msg.ID, nil
	case <-m.closed:
		return "", errors.New("memory backend closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Subscribe delivers messages to handler until ctx is done or the backend is
// closed.
func (m *MemoryBackend) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errors.New("memory topic is required")
	}
	q := m.queue(topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closed:
			return nil
		case msg := <-q:
			msg.Deliveries++
			if err := handler(ctx, msg); err != nil {
				m.retry(topic, q, msg)
			}
		}
	}
}

// DeadLetters returns the messages of topic that exhausted their deliveries.
func (m *MemoryBackend) DeadLetters(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.dead[topic]...)
}

func (m *MemoryBackend) retry(topic string, q chan Message, msg Message) {
	if msg.Deliveries >= m.policy.MaxDeliveries {
		m.mu.Lock()
		m.dead[topic] = append(m.dead[topic], msg)
		m.mu.Unlock()
		return
	}

	timer := time.NewTimer(m.policy.Delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-m.closed:
			return
		}
		select {
		case q <- msg:
		case <-m.closed:
		}
	}()
}

// Close stops all subscribers.
func (m *MemoryBackend) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
