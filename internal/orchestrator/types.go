// Package orchestrator applies a batch of staged runtime changes in a fixed
// phase order: safe mode, then runtime switch and overrides, then subsystem
// activations.
package orchestrator

import (
	"context"

	"runtimeops/internal/approval"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusSuccess          Status = "success"
	StatusFailed           Status = "failed"
	StatusSkipped          Status = "skipped"
	StatusAwaitingApproval Status = "awaiting_approval"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped, StatusAwaitingApproval:
		return true
	}
	return false
}

const frozenMessage = "freeze_updates is enabled"

// CallContext travels with every backing call.
type CallContext struct {
	Reason     string
	Phrase     string
	Actor      string
	ApprovalID string
}

type SwitchRequest struct {
	Payload         staging.RuntimePayload
	ExpectedVersion int64
	Call            CallContext
}

type SafeModeRequest struct {
	ExpectedVersion int64
	Call            CallContext
}

type SubsystemRequest struct {
	Payload staging.SubsystemPayload
	Call    CallContext
}

// Backend performs the actual reads and writes a batch needs.
type Backend interface {
	FetchRuntimeConfig(ctx context.Context) (*runtimeconfig.RuntimeConfig, error)
	SwitchRuntime(ctx context.Context, req SwitchRequest) (*runtimeconfig.RuntimeConfig, error)
	FreezeUpdates(ctx context.Context, req SafeModeRequest) (*runtimeconfig.RuntimeConfig, error)
	UnfreezeUpdates(ctx context.Context, req SafeModeRequest) (*runtimeconfig.RuntimeConfig, error)
	ActivateSubsystem(ctx context.Context, req SubsystemRequest) error
	DeactivateSubsystem(ctx context.Context, req SubsystemRequest) error
}

// Gate reports whether an approval already covers an action and files one
// when the backend demands it.
type Gate interface {
	Check(ctx context.Context, action staging.StagedAction) (approval.Decision, error)
	Escalate(ctx context.Context, action staging.StagedAction, reason, actor string) (approval.Decision, error)
}

type BatchRequest struct {
	Actions            []staging.StagedAction
	Reason             string
	ConfirmationPhrase string
	// ActionPhrases holds per-action typed phrases keyed by action id; a
	// missing entry falls back to ConfirmationPhrase.
	ActionPhrases map[string]string
	Actor         string
}

func (r BatchRequest) phraseFor(actionID string) string {
	if phrase, ok := r.ActionPhrases[actionID]; ok {
		return phrase
	}
	return r.ConfirmationPhrase
}

type ApplyProgress struct {
	ActionID          string             `json:"action_id"`
	Type              staging.ActionType `json:"type"`
	Status            Status             `json:"status"`
	ErrorCode         string             `json:"error_code,omitempty"`
	Error             string             `json:"error,omitempty"`
	Message           string             `json:"message,omitempty"`
	ApprovalRequestID string             `json:"approval_request_id,omitempty"`
}

// Observer receives the full progress list after every status change. A
// returned error aborts the batch.
type Observer func(progress []ApplyProgress) error

type AwaitingApproval struct {
	ActionID  string `json:"action_id"`
	RequestID string `json:"request_id"`
}

type BatchResult struct {
	BatchID             string             `json:"batch_id"`
	Succeeded           []string           `json:"succeeded"`
	Failed              []string           `json:"failed"`
	Skipped             []string           `json:"skipped"`
	AwaitingApproval    []AwaitingApproval `json:"awaiting_approval"`
	RollbackSuggestions []string           `json:"rollback_suggestions"`
	Progress            []ApplyProgress    `json:"progress"`
	// Halted is set when a failure stopped the batch before every action ran.
	Halted bool `json:"halted"`
}
