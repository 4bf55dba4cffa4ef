package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"runtimeops/internal/config"
	"runtimeops/internal/constants"
	"runtimeops/internal/logger"
	"runtimeops/pkg/metrics"
	"runtimeops/pkg/models"
	"runtimeops/pkg/retry"
	"runtimeops/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
	policy retry.Policy
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return newKafkaProducer(w, policyFromConfig(cfg.Retry), log)
}

func newKafkaProducer(w messageWriter, policy retry.Policy, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{writer: w, policy: policy, logger: log}
}

func policyFromConfig(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
		MaxElapsedTime:  cfg.MaxElapsedTime,
	}
}

// Publish writes msg keyed by its ID, retrying transient broker errors.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	if err := models.ValidateMessageEnvelope(&msg); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.ID),
		Value:   body,
		Headers: tracing.InjectTraceContext(ctx, []kafka.Header{}),
		Time:    time.Now(),
	}

	start := time.Now()
	err = retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.writer.WriteMessages(ctx, message)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt("kafka_producer", topic)
		p.logger.WarnwCtx(ctx, "Retrying kafka write",
			"topic", topic,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	metrics.ObserveKafkaWrite(topic, len(body), err, time.Since(start))

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
