package management

import (
	"encoding/json"

	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
)

// StageRequest describes the desired state. Each section is optional; only
// sections that differ from the current config produce actions.
type StageRequest struct {
	Runtime       *staging.RuntimeTarget `json:"runtime,omitempty"`
	FreezeUpdates *bool                  `json:"freeze_updates,omitempty"`
	Subsystems    []SubsystemChange      `json:"subsystems,omitempty"`
}

type SubsystemChange struct {
	Type    staging.ActionType `json:"type" example:"IRT_ACTIVATE"`
	Payload json.RawMessage    `json:"payload" swaggertype:"object"`
}

type StageResponse struct {
	Current    *runtimeconfig.RuntimeConfig `json:"current"`
	Actions    []staging.StagedAction       `json:"actions"`
	Advisories []string                     `json:"advisories"`
}

type ApplyBatchRequest struct {
	Actions            []staging.StagedAction `json:"actions"`
	Reason             string                 `json:"reason"`
	ConfirmationPhrase string                 `json:"confirmation_phrase,omitempty"`
	ActionPhrases      map[string]string      `json:"action_phrases,omitempty"`
}

type ResolveApprovalRequest struct {
	Note string `json:"note"`
}
