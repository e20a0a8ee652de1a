package mq

import (
	"context"
	"fmt"

	"github.com/newdaybreak/careers/config"
)

// Backend names accepted in MQ_BACKEND.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

// NewFromConfig connects to the configured broker. It returns nil, nil when
// the backend is "none".
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	policy := RedeliveryPolicy{Delay: cfg.RetryDelay, MaxDeliveries: cfg.MaxDeliveries}
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return New(BackendMemory, NewMemoryBackend(policy)), nil
	case BackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ, policy)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(BackendRabbitMQ, client), nil
	case BackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub, policy)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(BackendPubSub, client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
