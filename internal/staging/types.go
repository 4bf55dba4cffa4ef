// Package staging models staged runtime changes: the action sum type, the
// minimal-diff stager, per-type confirmation phrases and risk classification.
package staging

import "fmt"

type ActionType string

const (
	ActionFreeze                  ActionType = "FREEZE"
	ActionUnfreeze                ActionType = "UNFREEZE"
	ActionRuntimeSwitch           ActionType = "RUNTIME_SWITCH"
	ActionOverridesApply          ActionType = "OVERRIDES_APPLY"
	ActionIRTActivate             ActionType = "IRT_ACTIVATE"
	ActionIRTDeactivate           ActionType = "IRT_DEACTIVATE"
	ActionRankActivate            ActionType = "RANK_ACTIVATE"
	ActionRankDeactivate          ActionType = "RANK_DEACTIVATE"
	ActionGraphRevisionActivate   ActionType = "GRAPH_REVISION_ACTIVATE"
	ActionGraphRevisionDeactivate ActionType = "GRAPH_REVISION_DEACTIVATE"
)

var ActionTypes = []ActionType{
	ActionFreeze,
	ActionUnfreeze,
	ActionRuntimeSwitch,
	ActionOverridesApply,
	ActionIRTActivate,
	ActionIRTDeactivate,
	ActionRankActivate,
	ActionRankDeactivate,
	ActionGraphRevisionActivate,
	ActionGraphRevisionDeactivate,
}

func (t ActionType) Valid() bool {
	_, ok := phrases[t]
	return ok
}

type Phase int

const (
	PhaseSafeMode  Phase = 1
	PhaseRuntime   Phase = 2
	PhaseSubsystem Phase = 3
)

func (t ActionType) Phase() Phase {
	switch t {
	case ActionFreeze, ActionUnfreeze:
		return PhaseSafeMode
	case ActionRuntimeSwitch, ActionOverridesApply:
		return PhaseRuntime
	default:
		return PhaseSubsystem
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r is as risky as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(s)
	if level.Rank() == 0 {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return level, nil
}

type Subsystem string

const (
	SubsystemIRT           Subsystem = "irt"
	SubsystemRank          Subsystem = "rank"
	SubsystemGraphRevision Subsystem = "graph_revision"
)

var Subsystems = []Subsystem{SubsystemIRT, SubsystemRank, SubsystemGraphRevision}
