package staging

import (
	"encoding/json"
	"errors"
	"fmt"

	"runtimeops/internal/runtimeconfig"
)

// Payload is implemented only by the variant structs in this file, so the
// action type is always derived from the payload and can never disagree with it.
type Payload interface {
	ActionType() ActionType
	Validate() error
	isPayload()
}

// RuntimePayload is carried by Phase 2 actions.
type RuntimePayload interface {
	Payload
	TargetProfile() runtimeconfig.Profile
	TargetOverrides() runtimeconfig.Overrides
}

// SubsystemPayload is carried by Phase 3 actions.
type SubsystemPayload interface {
	Payload
	Subsystem() Subsystem
	Activate() bool
	Identifiers() map[string]string
}

type FreezePayload struct{}

type UnfreezePayload struct{}

type RuntimeSwitchPayload struct {
	Profile   runtimeconfig.Profile   `json:"profile"`
	Overrides runtimeconfig.Overrides `json:"overrides,omitempty"`
}

type OverridesApplyPayload struct {
	Profile   runtimeconfig.Profile   `json:"profile"`
	Overrides runtimeconfig.Overrides `json:"overrides"`
}

type IRTActivatePayload struct {
	RunID string `json:"run_id"`
}

type IRTDeactivatePayload struct{}

type RankActivatePayload struct {
	CohortKey string `json:"cohort_key"`
}

type RankDeactivatePayload struct {
	CohortKey string `json:"cohort_key"`
}

type GraphRevisionActivatePayload struct {
	SnapshotID string `json:"snapshot_id"`
}

type GraphRevisionDeactivatePayload struct{}

func (FreezePayload) ActionType() ActionType                  { return ActionFreeze }
func (UnfreezePayload) ActionType() ActionType                { return ActionUnfreeze }
func (RuntimeSwitchPayload) ActionType() ActionType           { return ActionRuntimeSwitch }
func (OverridesApplyPayload) ActionType() ActionType          { return ActionOverridesApply }
func (IRTActivatePayload) ActionType() ActionType             { return ActionIRTActivate }
func (IRTDeactivatePayload) ActionType() ActionType           { return ActionIRTDeactivate }
func (RankActivatePayload) ActionType() ActionType            { return ActionRankActivate }
func (RankDeactivatePayload) ActionType() ActionType          { return ActionRankDeactivate }
func (GraphRevisionActivatePayload) ActionType() ActionType   { return ActionGraphRevisionActivate }
func (GraphRevisionDeactivatePayload) ActionType() ActionType { return ActionGraphRevisionDeactivate }

func (FreezePayload) isPayload()                  {}
func (UnfreezePayload) isPayload()                {}
func (RuntimeSwitchPayload) isPayload()           {}
func (OverridesApplyPayload) isPayload()          {}
func (IRTActivatePayload) isPayload()             {}
func (IRTDeactivatePayload) isPayload()           {}
func (RankActivatePayload) isPayload()            {}
func (RankDeactivatePayload) isPayload()          {}
func (GraphRevisionActivatePayload) isPayload()   {}
func (GraphRevisionDeactivatePayload) isPayload() {}

func (FreezePayload) Validate() error                  { return nil }
func (UnfreezePayload) Validate() error                { return nil }
func (IRTDeactivatePayload) Validate() error           { return nil }
func (GraphRevisionDeactivatePayload) Validate() error { return nil }

func (p RuntimeSwitchPayload) Validate() error {
	if !p.Profile.Valid() {
		return fmt.Errorf("invalid profile %q", p.Profile)
	}
	return p.Overrides.Validate()
}

func (p OverridesApplyPayload) Validate() error {
	if !p.Profile.Valid() {
		return fmt.Errorf("invalid profile %q", p.Profile)
	}
	return p.Overrides.Validate()
}

func (p IRTActivatePayload) Validate() error {
	if p.RunID == "" {
		return errors.New("run_id is required")
	}
	return nil
}

func (p RankActivatePayload) Validate() error {
	if p.CohortKey == "" {
		return errors.New("cohort_key is required")
	}
	return nil
}

func (p RankDeactivatePayload) Validate() error {
	if p.CohortKey == "" {
		return errors.New("cohort_key is required")
	}
	return nil
}

func (p GraphRevisionActivatePayload) Validate() error {
	if p.SnapshotID == "" {
		return errors.New("snapshot_id is required")
	}
	return nil
}

func (p RuntimeSwitchPayload) TargetProfile() runtimeconfig.Profile     { return p.Profile }
func (p RuntimeSwitchPayload) TargetOverrides() runtimeconfig.Overrides { return p.Overrides.Clean() }
func (p OverridesApplyPayload) TargetProfile() runtimeconfig.Profile    { return p.Profile }
func (p OverridesApplyPayload) TargetOverrides() runtimeconfig.Overrides {
	return p.Overrides.Clean()
}

func (IRTActivatePayload) Subsystem() Subsystem             { return SubsystemIRT }
func (IRTDeactivatePayload) Subsystem() Subsystem           { return SubsystemIRT }
func (RankActivatePayload) Subsystem() Subsystem            { return SubsystemRank }
func (RankDeactivatePayload) Subsystem() Subsystem          { return SubsystemRank }
func (GraphRevisionActivatePayload) Subsystem() Subsystem   { return SubsystemGraphRevision }
func (GraphRevisionDeactivatePayload) Subsystem() Subsystem { return SubsystemGraphRevision }

func (IRTActivatePayload) Activate() bool             { return true }
func (IRTDeactivatePayload) Activate() bool           { return false }
func (RankActivatePayload) Activate() bool            { return true }
func (RankDeactivatePayload) Activate() bool          { return false }
func (GraphRevisionActivatePayload) Activate() bool   { return true }
func (GraphRevisionDeactivatePayload) Activate() bool { return false }

func (p IRTActivatePayload) Identifiers() map[string]string {
	return map[string]string{"run_id": p.RunID}
}
func (IRTDeactivatePayload) Identifiers() map[string]string { return map[string]string{} }
func (p RankActivatePayload) Identifiers() map[string]string {
	return map[string]string{"cohort_key": p.CohortKey}
}
func (p RankDeactivatePayload) Identifiers() map[string]string {
	return map[string]string{"cohort_key": p.CohortKey}
}
func (p GraphRevisionActivatePayload) Identifiers() map[string]string {
	return map[string]string{"snapshot_id": p.SnapshotID}
}
func (GraphRevisionDeactivatePayload) Identifiers() map[string]string { return map[string]string{} }

// DecodePayload builds the variant for t from its JSON form. An empty body is
// accepted for variants without fields.
func DecodePayload(t ActionType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case ActionFreeze:
		p = &FreezePayload{}
	case ActionUnfreeze:
		p = &UnfreezePayload{}
	case ActionRuntimeSwitch:
		p = &RuntimeSwitchPayload{}
	case ActionOverridesApply:
		p = &OverridesApplyPayload{}
	case ActionIRTActivate:
		p = &IRTActivatePayload{}
	case ActionIRTDeactivate:
		p = &IRTDeactivatePayload{}
	case ActionRankActivate:
		p = &RankActivatePayload{}
	case ActionRankDeactivate:
		p = &RankDeactivatePayload{}
	case ActionGraphRevisionActivate:
		p = &GraphRevisionActivatePayload{}
	case ActionGraphRevisionDeactivate:
		p = &GraphRevisionDeactivatePayload{}
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", t, err)
		}
	}

	return deref(p), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *FreezePayload:
		return *v
	case *UnfreezePayload:
		return *v
	case *RuntimeSwitchPayload:
		return *v
	case *OverridesApplyPayload:
		return *v
	case *IRTActivatePayload:
		return *v
	case *IRTDeactivatePayload:
		return *v
	case *RankActivatePayload:
		return *v
	case *RankDeactivatePayload:
		return *v
	case *GraphRevisionActivatePayload:
		return *v
	case *GraphRevisionDeactivatePayload:
		return *v
	default:
		return p
	}
}

// PayloadMap is the generic form of p used by rule evaluation and event envelopes.
func PayloadMap(p Payload) (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return m, nil
}
