package control

import (
	"context"
	"time"

	"github.com/google/uuid"

	"runtimeops/internal/approval"
	"runtimeops/internal/broker"
	"runtimeops/internal/constants"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	"runtimeops/pkg/logging"
	"runtimeops/pkg/models"
)

type EventNotifier struct {
	producer broker.Producer
	topic    string
}

func NewEventNotifier(producer broker.Producer, topic string) *EventNotifier {
	return &EventNotifier{producer: producer, topic: topic}
}

func (n *EventNotifier) PublishRuntimeChange(ctx context.Context, event *runtimeconfig.SwitchEvent, approvalID string) error {
	eventType := models.EventTypeRuntimeSwitched
	if event.Action == string(staging.ActionFreeze) || event.Action == string(staging.ActionUnfreeze) {
		eventType = models.EventTypeSafeModeChanged
	}
	return n.publish(ctx, models.RuntimeEvent{
		EventType:  eventType,
		Action:     event.Action,
		Timestamp:  event.CreatedAt,
		Actor:      event.CreatedBy,
		Reason:     event.Reason,
		ApprovalID: approvalID,
		Version:    event.NewConfig.Version,
		Metadata: map[string]interface{}{
			"switch_event_id":  event.ID,
			"previous_profile": event.PreviousConfig.ActiveProfile,
			"active_profile":   event.NewConfig.ActiveProfile,
			"overrides":        event.NewConfig.Overrides,
			"freeze_updates":   event.NewConfig.SafeMode.FreezeUpdates,
		},
	})
}

func (n *EventNotifier) PublishSubsystemToggled(ctx context.Context, payload staging.SubsystemPayload, actor, reason, approvalID string) error {
	return n.publish(ctx, models.RuntimeEvent{
		EventType:  models.EventTypeSubsystemToggled,
		Action:     string(payload.ActionType()),
		Timestamp:  time.Now().UTC(),
		Actor:      actor,
		Reason:     reason,
		ApprovalID: approvalID,
		Metadata: map[string]interface{}{
			"subsystem":   payload.Subsystem(),
			"activate":    payload.Activate(),
			"identifiers": payload.Identifiers(),
		},
	})
}

// PublishBatchApplied summarises a finished batch. Per-change events are
// published by the control plane as each call commits.
func (n *EventNotifier) PublishBatchApplied(ctx context.Context, result *orchestrator.BatchResult, actor, reason string) error {
	awaiting := make([]string, 0, len(result.AwaitingApproval))
	for _, a := range result.AwaitingApproval {
		awaiting = append(awaiting, a.ActionID)
	}
	ctx = logging.WithBatchID(ctx, result.BatchID)
	return n.publish(ctx, models.RuntimeEvent{
		EventType: models.EventTypeBatchApplied,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Reason:    reason,
		Metadata: map[string]interface{}{
			"batch_id":          result.BatchID,
			"halted":            result.Halted,
			"succeeded":         result.Succeeded,
			"failed":            result.Failed,
			"skipped":           result.Skipped,
			"awaiting_approval": awaiting,
		},
	})
}

func (n *EventNotifier) PublishApprovalResolved(ctx context.Context, req *approval.Request) error {
	return n.publish(ctx, models.RuntimeEvent{
		EventType:  models.EventTypeApprovalResolved,
		Action:     string(req.ActionType),
		Timestamp:  time.Now().UTC(),
		Actor:      req.ResolvedBy,
		Reason:     req.ResolutionNote,
		ApprovalID: req.ID,
		Metadata: map[string]interface{}{
			"status":       req.Status,
			"requested_by": req.RequestedBy,
		},
	})
}

func (n *EventNotifier) publish(ctx context.Context, event models.RuntimeEvent) error {
	if n == nil || n.producer == nil || n.topic == "" {
		return nil
	}

	payload, err := event.ToPayload()
	if err != nil {
		return err
	}

	envelope := models.NewMessageEnvelopeBuilder().
		WithID(uuid.New().String()).
		WithSource(constants.ServiceName).
		WithTimestamp(time.Now().UTC()).
		WithPayload(payload).
		WithTraceID(logging.GetTraceID(ctx)).
		WithBatchID(logging.GetBatchID(ctx)).
		WithActor(event.Actor).
		Build()

	return n.producer.Publish(ctx, n.topic, *envelope)
}
