// Package broker publishes runtime events to the message bus.
package broker

import (
	"context"

	"runtimeops/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// NopProducer drops every message; used when no broker is configured.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	return nil
}

func (NopProducer) Close() error {
	return nil
}
