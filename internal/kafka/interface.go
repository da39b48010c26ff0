package kafka

import (
	"context"

	"github.com/SavioJohny/delivery-website/internal/domain"
)

// MessagePublisher streams persisted chat messages to downstream consumers
// (analytics, notification mailers). Publishing never gates delivery.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg domain.ChatMessage) error
	Close() error
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishMessage(context.Context, domain.ChatMessage) error { return nil }

func (NoopPublisher) Close() error { return nil }
