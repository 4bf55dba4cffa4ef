package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/approval"
	"runtimeops/internal/constants"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	"runtimeops/pkg/models"
)

type capturingProducer struct {
	topics   []string
	messages []models.MessageEnvelope
}

func (p *capturingProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func TestEventNotifier_RuntimeChange(t *testing.T) {
	producer := &capturingProducer{}
	n := NewEventNotifier(producer, "runtime_events")

	event := &runtimeconfig.SwitchEvent{
		ID:             "ev-1",
		Action:         string(staging.ActionFreeze),
		PreviousConfig: runtimeconfig.RuntimeConfig{ActiveProfile: runtimeconfig.ProfileV1Primary, Version: 1},
		NewConfig: runtimeconfig.RuntimeConfig{
			ActiveProfile: runtimeconfig.ProfileV1Primary,
			SafeMode:      runtimeconfig.SafeMode{FreezeUpdates: true},
			Version:       2,
		},
		CreatedBy: "alice",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.PublishRuntimeChange(context.Background(), event, "ap-1"))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "runtime_events", producer.topics[0])
	assert.Equal(t, constants.ServiceName, msg.Source)
	require.NoError(t, models.ValidateMessageEnvelope(&msg))
	assert.Equal(t, "alice", msg.Metadata.Actor)
	assert.Equal(t, models.EventTypeSafeModeChanged, msg.Payload["event_type"])
	assert.Equal(t, "ap-1", msg.Payload["approval_id"])
	assert.EqualValues(t, 2, msg.Payload["version"])
}

func TestEventNotifier_BatchApplied(t *testing.T) {
	producer := &capturingProducer{}
	n := NewEventNotifier(producer, "runtime_events")

	result := &orchestrator.BatchResult{
		BatchID:          "batch-9",
		Succeeded:        []string{"a1"},
		Failed:           []string{},
		Skipped:          []string{"a3"},
		AwaitingApproval: []orchestrator.AwaitingApproval{{ActionID: "a2", RequestID: "ap-2"}},
	}
	require.NoError(t, n.PublishBatchApplied(context.Background(), result, "alice", "weekly rollout"))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "batch-9", msg.Metadata.BatchID)
	assert.Equal(t, models.EventTypeBatchApplied, msg.Payload["event_type"])
	metadata := msg.Payload["metadata"].(map[string]interface{})
	assert.Equal(t, []interface{}{"a2"}, metadata["awaiting_approval"])
	assert.Equal(t, false, metadata["halted"])
}

func TestEventNotifier_ApprovalResolved(t *testing.T) {
	producer := &capturingProducer{}
	n := NewEventNotifier(producer, "runtime_events")

	req := &approval.Request{
		ID:          "ap-3",
		ActionType:  staging.ActionRuntimeSwitch,
		RequestedBy: "alice",
		ResolvedBy:  "bob",
		Status:      approval.StatusRejected,
	}
	require.NoError(t, n.PublishApprovalResolved(context.Background(), req))

	msg := producer.messages[0]
	assert.Equal(t, "bob", msg.Metadata.Actor)
	assert.Equal(t, models.EventTypeApprovalResolved, msg.Payload["event_type"])
	assert.Equal(t, "RUNTIME_SWITCH", msg.Payload["action"])
}

func TestEventNotifier_WithoutTopicIsSilent(t *testing.T) {
	producer := &capturingProducer{}
	n := NewEventNotifier(producer, "")

	require.NoError(t, n.PublishApprovalResolved(context.Background(), &approval.Request{ID: "ap-1"}))
	assert.Empty(t, producer.messages)
}
