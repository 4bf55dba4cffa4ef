package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/config"
	"runtimeops/internal/logger"
	"runtimeops/pkg/models"
	"runtimeops/pkg/retry"
)

type fakeWriter struct {
	failures int
	written  []kafka.Message
	attempts int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.attempts++
	if w.attempts <= w.failures {
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func envelope() models.MessageEnvelope {
	return *models.NewMessageEnvelopeBuilder().
		WithID("evt-1").
		WithSource("runtime-orchestrator").
		WithPayload(map[string]interface{}{"event_type": models.EventTypeRuntimeSwitched}).
		Build()
}

func TestKafkaProducer_PublishRetries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newKafkaProducer(w, testPolicy(), logger.NopLogger())

	require.NoError(t, p.Publish(context.Background(), "runtime-events", envelope()))
	assert.Equal(t, 3, w.attempts)
	require.Len(t, w.written, 1)
	assert.Equal(t, "runtime-events", w.written[0].Topic)
	assert.Equal(t, []byte("evt-1"), w.written[0].Key)

	var decoded models.MessageEnvelope
	require.NoError(t, json.Unmarshal(w.written[0].Value, &decoded))
	assert.Equal(t, "runtime_switched", decoded.Payload["event_type"])
}

func TestKafkaProducer_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newKafkaProducer(w, testPolicy(), logger.NopLogger())

	err := p.Publish(context.Background(), "runtime-events", envelope())
	require.Error(t, err)
	assert.Equal(t, 3, w.attempts)
}

func TestKafkaProducer_RejectsInvalidEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, testPolicy(), logger.NopLogger())

	err := p.Publish(context.Background(), "runtime-events", models.MessageEnvelope{})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, w.attempts)
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(config.BrokerConfig{}, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, NopProducer{}, p)

	_, err = NewProducer(config.BrokerConfig{Type: "rabbitmq"}, logger.NopLogger())
	assert.Error(t, err)
}
