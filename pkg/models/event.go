package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuntimeEvent is published after every committed runtime-affecting change.
type RuntimeEvent struct {
	EventType  string                 `json:"event_type"`
	Action     string                 `json:"action"`
	Timestamp  time.Time              `json:"timestamp"`
	Actor      string                 `json:"actor,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	ApprovalID string                 `json:"approval_id,omitempty"`
	Version    int64                  `json:"version,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeRuntimeSwitched  = "runtime_switched"
	EventTypeSafeModeChanged  = "safe_mode_changed"
	EventTypeSubsystemToggled = "subsystem_toggled"
	EventTypeApprovalResolved = "approval_resolved"
	EventTypeBatchApplied     = "batch_applied"
)

// ToPayload flattens the event into the generic envelope payload.
func (e RuntimeEvent) ToPayload() (map[string]interface{}, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runtime event: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal runtime event: %w", err)
	}
	return payload, nil
}
