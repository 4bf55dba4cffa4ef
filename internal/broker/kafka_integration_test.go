//go:build integration

package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/config"
	"runtimeops/internal/logger"
	"runtimeops/internal/testinfra"
	"runtimeops/pkg/models"
)

func TestKafkaProducer_PublishToBroker(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Kafka: true})

	cfg := config.KafkaConfig{
		Brokers: infra.KafkaBrokers,
		Retry: config.RetryConfig{
			MaxAttempts:     5,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
		},
	}
	producer := NewKafkaProducer(cfg, logger.NopLogger())
	t.Cleanup(func() { producer.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	msg := models.NewMessageEnvelopeBuilder().
		WithID("evt-integration").
		WithSource("runtime-orchestrator").
		WithTimestamp(time.Now().UTC()).
		WithPayload(map[string]interface{}{"event_type": models.EventTypeRuntimeSwitched}).
		Build()

	require.NoError(t, producer.Publish(ctx, "runtime_events", *msg))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   infra.KafkaBrokers,
		Topic:     "runtime_events",
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { reader.Close() })

	read, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("evt-integration"), read.Key)

	var decoded models.MessageEnvelope
	require.NoError(t, json.Unmarshal(read.Value, &decoded))
	assert.Equal(t, "evt-integration", decoded.ID)
	assert.Equal(t, "runtime_switched", decoded.Payload["event_type"])
}
