package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/newdaybreak/careers/config"
	"google.golang.org/api/option"
)

// Pub/Sub bounds on subscription retry settings.
const (
	pubsubMinDeliveryAttempts = 5
	pubsubMaxDeliveryAttempts = 100
	pubsubMaxBackoff          = 600 * time.Second
)

// PubSubClient wraps the Google Cloud Pub/Sub SDK client. Subscriptions it
// creates carry the redelivery policy as a Pub/Sub retry policy and a
// dead-letter topic, so nacked notifications back off instead of cycling.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string
	policy             RedeliveryPolicy
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, policy RedeliveryPolicy) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubClient{
		client:             client,
		subscriptionSuffix: suffix,
		policy:             policy.withDefaults(),
	}, nil
}

// Publish sends a message to the named topic and waits for the server id.
func (p *PubSubClient) Publish(ctx context.Context, topicName string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(topicName) == "" {
		return "", errors.New("pubsub topic is required")
	}

	topic, err := p.ensureTopic(ctx, topicName)
	if err != nil {
		return "", err
	}
	defer topic.Stop()
	result := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topicName, err)
	}
	return id, nil
}

// Subscribe consumes messages from the topic's subscription, creating both
// when missing. Nacked messages are redelivered by Pub/Sub.
func (p *PubSubClient) Subscribe(ctx context.Context, topicName string, handler Handler) error {
	if strings.TrimSpace(topicName) == "" {
		return errors.New("pubsub topic is required")
	}

	topic, err := p.ensureTopic(ctx, topicName)
	if err != nil {
		return err
	}

	deadLetter, err := p.ensureTopic(ctx, DeadLetterTopic(topicName))
	if err != nil {
		return err
	}
	defer deadLetter.Stop()

	subscriptionName := p.subscriptionName(topicName)
	sub, err := p.ensureSubscription(ctx, subscriptionName, topic, deadLetter)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message := Message{
			ID:         msg.ID,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if msg.DeliveryAttempt != nil {
			message.Deliveries = *msg.DeliveryAttempt
		}
		if err := handler(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubClient) Close() error {
	return p.client.Close()
}

func (p *PubSubClient) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, name)
	}
	return topic, nil
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name string, topic, deadLetter *pubsub.Topic) (*pubsub.Subscription, error) {
	retry, deadLetterPolicy := subscriptionPolicies(p.policy, deadLetter.String())
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
			Topic:            topic,
			RetryPolicy:      retry,
			DeadLetterPolicy: deadLetterPolicy,
		})
	}
	if _, err := sub.Update(ctx, pubsub.SubscriptionConfigToUpdate{
		RetryPolicy:      retry,
		DeadLetterPolicy: deadLetterPolicy,
	}); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", name, err)
	}
	return sub, nil
}

// subscriptionPolicies maps a RedeliveryPolicy onto Pub/Sub settings, clamped
// to the ranges the service accepts.
func subscriptionPolicies(policy RedeliveryPolicy, deadLetterTopic string) (*pubsub.RetryPolicy, *pubsub.DeadLetterPolicy) {
	minBackoff := policy.Delay
	if minBackoff > pubsubMaxBackoff {
		minBackoff = pubsubMaxBackoff
	}
	maxBackoff := 10 * minBackoff
	if maxBackoff > pubsubMaxBackoff {
		maxBackoff = pubsubMaxBackoff
	}

	attempts := policy.MaxDeliveries
	if attempts < pubsubMinDeliveryAttempts {
		attempts = pubsubMinDeliveryAttempts
	}
	if attempts > pubsubMaxDeliveryAttempts {
		attempts = pubsubMaxDeliveryAttempts
	}

	retry := &pubsub.RetryPolicy{
		MinimumBackoff: minBackoff,
		MaximumBackoff: maxBackoff,
	}
	deadLetter := &pubsub.DeadLetterPolicy{
		DeadLetterTopic:     deadLetterTopic,
		MaxDeliveryAttempts: attempts,
	}
	return retry, deadLetter
}

func (p *PubSubClient) subscriptionName(topic string) string {
	if p.subscriptionSuffix == "" {
		return topic
	}
	return topic + p.subscriptionSuffix
}
