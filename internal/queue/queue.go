package queue

import (
	"context"
)

// Publisher emits batch lifecycle events.
type Publisher interface {
	PublishBatchEvent(ctx context.Context, event BatchEvent) error
	Close() error
}

const (
	// EventsExchangeName is the topic exchange lifecycle events are published to.
	EventsExchangeName = "campaign.events"
	// EventsQueueName collects every batch.* event.
	EventsQueueName = "campaign.batch.events"
	// EventsDLQName receives events rejected by consumers.
	EventsDLQName = "dlq.campaign.batch.events"

	batchRoutingPattern = "batch.*"
)

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBatchEvent(_ context.Context, event BatchEvent) error {
	return event.Validate()
}

func (NoopPublisher) Close() error { return nil }
