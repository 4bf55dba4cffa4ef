package orchestrator

import (
	"fmt"
	"strings"

	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
)

// batch is the state of one ApplyBatch call. It never outlives the call.
type batch struct {
	id       string
	req      BatchRequest
	progress []ApplyProgress
	observer Observer

	preBatch *runtimeconfig.RuntimeConfig
	current  *runtimeconfig.RuntimeConfig
	frozen   bool
	halted   bool
}

func newBatch(id string, req BatchRequest, observer Observer) *batch {
	progress := make([]ApplyProgress, len(req.Actions))
	for i, action := range req.Actions {
		progress[i] = ApplyProgress{
			ActionID: action.ID,
			Type:     action.Type(),
			Status:   StatusPending,
		}
	}
	return &batch{id: id, req: req, progress: progress, observer: observer}
}

func (b *batch) snapshot() []ApplyProgress {
	out := make([]ApplyProgress, len(b.progress))
	copy(out, b.progress)
	return out
}

func (b *batch) emit() error {
	if b.observer == nil {
		return nil
	}
	snapshot := b.snapshot()
	if err := pkgerrors.Guard(func() error { return b.observer(snapshot) }); err != nil {
		return fmt.Errorf("progress observer failed: %w", err)
	}
	return nil
}

func (b *batch) transition(i int, p ApplyProgress) error {
	p.ActionID = b.progress[i].ActionID
	p.Type = b.progress[i].Type
	b.progress[i] = p
	return b.emit()
}

func (b *batch) running(i int) error {
	return b.transition(i, ApplyProgress{Status: StatusRunning})
}

func (b *batch) succeed(i int) error {
	return b.transition(i, ApplyProgress{Status: StatusSuccess})
}

func (b *batch) skip(i int, message string) error {
	return b.transition(i, ApplyProgress{Status: StatusSkipped, Message: message})
}

func (b *batch) fail(i int, err *pkgerrors.Error) error {
	resp := pkgerrors.ToErrorResponse(err)
	return b.transition(i, ApplyProgress{
		Status:    StatusFailed,
		ErrorCode: resp.ErrorCode,
		Error:     resp.Error,
	})
}

func (b *batch) await(i int, requestID string) error {
	return b.transition(i, ApplyProgress{
		Status:            StatusAwaitingApproval,
		Message:           "waiting for a second operator to approve",
		ApprovalRequestID: requestID,
	})
}

// failPending marks every action that has not started yet as failed.
func (b *batch) failPending(err *pkgerrors.Error) error {
	for i := range b.progress {
		if b.progress[i].Status != StatusPending {
			continue
		}
		if emitErr := b.fail(i, err); emitErr != nil {
			return emitErr
		}
	}
	return nil
}

func (b *batch) result() *BatchResult {
	res := &BatchResult{
		BatchID:          b.id,
		Succeeded:        []string{},
		Failed:           []string{},
		Skipped:          []string{},
		AwaitingApproval: []AwaitingApproval{},
		Progress:         b.snapshot(),
		Halted:           b.halted,
	}
	for _, p := range b.progress {
		switch p.Status {
		case StatusSuccess:
			res.Succeeded = append(res.Succeeded, p.ActionID)
		case StatusFailed:
			res.Failed = append(res.Failed, p.ActionID)
		case StatusSkipped:
			res.Skipped = append(res.Skipped, p.ActionID)
		case StatusAwaitingApproval:
			res.AwaitingApproval = append(res.AwaitingApproval, AwaitingApproval{
				ActionID:  p.ActionID,
				RequestID: p.ApprovalRequestID,
			})
		}
	}
	res.RollbackSuggestions = b.rollbackSuggestions()
	return res
}

// rollbackSuggestions are advisory only. Nothing here reverts anything.
func (b *batch) rollbackSuggestions() []string {
	suggestions := []string{}

	var switched *staging.StagedAction
	var failedActivations, frozenSkips []string
	for i, p := range b.progress {
		action := b.req.Actions[i]
		switch {
		case action.Type() == staging.ActionRuntimeSwitch && p.Status == StatusSuccess:
			switched = &b.req.Actions[i]
		case action.Phase() == staging.PhaseSubsystem && p.Status == StatusFailed:
			failedActivations = append(failedActivations, string(action.Type()))
		case action.Phase() == staging.PhaseSubsystem && p.Status == StatusSkipped && p.Message == frozenMessage:
			frozenSkips = append(frozenSkips, string(action.Type()))
		}
	}

	if switched != nil && len(failedActivations) > 0 && b.preBatch != nil {
		target := ""
		if rp, ok := switched.Payload.(staging.RuntimePayload); ok {
			target = string(rp.TargetProfile())
		}
		suggestions = append(suggestions, fmt.Sprintf(
			"Revert the runtime profile from %s to its pre-batch value %s: %s failed after the switch committed.",
			target, b.preBatch.ActiveProfile, strings.Join(failedActivations, ", "),
		))
	}

	if len(frozenSkips) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Unfreeze updates and re-run the batch to apply the skipped activations: %s.",
			strings.Join(frozenSkips, ", "),
		))
	}

	for i, p := range b.progress {
		if p.Status != StatusAwaitingApproval {
			continue
		}
		suggestions = append(suggestions, fmt.Sprintf(
			"Re-submit %s (%s) once approval request %s is approved by a second operator.",
			b.req.Actions[i].Type(), p.ActionID, p.ApprovalRequestID,
		))
	}

	return suggestions
}
