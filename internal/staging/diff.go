package staging

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"runtimeops/internal/runtimeconfig"
)

// RuntimeTarget is the desired profile and the full desired override set.
type RuntimeTarget struct {
	Profile   runtimeconfig.Profile   `json:"profile"`
	Overrides runtimeconfig.Overrides `json:"overrides"`
}

// DiffRuntime returns the single payload that moves current to target, or nil
// when nothing differs. A profile change always carries the overrides too.
func DiffRuntime(current runtimeconfig.RuntimeConfig, target RuntimeTarget) Payload {
	overrides := target.Overrides.Clean()

	if target.Profile != current.ActiveProfile {
		return RuntimeSwitchPayload{Profile: target.Profile, Overrides: overrides}
	}
	if !overrides.Equal(current.Overrides) {
		return OverridesApplyPayload{Profile: current.ActiveProfile, Overrides: overrides}
	}
	return nil
}

// SummarizeRuntime renders a reviewable diff, one change per clause.
func SummarizeRuntime(current runtimeconfig.RuntimeConfig, target RuntimeTarget) string {
	var parts []string
	if target.Profile != current.ActiveProfile {
		parts = append(parts, fmt.Sprintf("profile: %s → %s", current.ActiveProfile, target.Profile))
	}

	for _, module := range changedModules(current.Overrides, target.Overrides) {
		parts = append(parts, fmt.Sprintf("%s: %s → %s", module, current.Overrides.Get(module), target.Overrides.Get(module)))
	}

	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, "; ")
}

func changedModules(before, after runtimeconfig.Overrides) []runtimeconfig.ModuleKey {
	seen := map[runtimeconfig.ModuleKey]bool{}
	var changed []runtimeconfig.ModuleKey
	for _, module := range runtimeconfig.Modules {
		seen[module] = true
		if before.Get(module) != after.Get(module) {
			changed = append(changed, module)
		}
	}

	var unknown []runtimeconfig.ModuleKey
	for module := range after {
		if !seen[module] && after.Get(module) != before.Get(module) {
			unknown = append(unknown, module)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })

	return append(changed, unknown...)
}

// Stager turns desired states into staged actions with summaries, phrases and risk levels.
type Stager struct {
	classifier *RiskClassifier
	newID      func() string
}

func NewStager(classifier *RiskClassifier) *Stager {
	return &Stager{
		classifier: classifier,
		newID:      func() string { return uuid.New().String() },
	}
}

func (s *Stager) StageRuntime(ctx context.Context, current runtimeconfig.RuntimeConfig, target RuntimeTarget) ([]StagedAction, error) {
	if !target.Profile.Valid() {
		return nil, fmt.Errorf("invalid target profile %q", target.Profile)
	}
	if err := target.Overrides.Validate(); err != nil {
		return nil, err
	}

	payload := DiffRuntime(current, target)
	if payload == nil {
		return []StagedAction{}, nil
	}

	action, err := s.build(ctx, payload, SummarizeRuntime(current, target), current.ActiveProfile)
	if err != nil {
		return nil, err
	}
	return []StagedAction{action}, nil
}

// StageSafeMode stages FREEZE or UNFREEZE only when the flag would change.
func (s *Stager) StageSafeMode(ctx context.Context, current runtimeconfig.RuntimeConfig, freeze bool) ([]StagedAction, error) {
	if current.SafeMode.FreezeUpdates == freeze {
		return []StagedAction{}, nil
	}

	var payload Payload = UnfreezePayload{}
	summary := "freeze_updates: true → false"
	if freeze {
		payload = FreezePayload{}
		summary = "freeze_updates: false → true"
	}

	action, err := s.build(ctx, payload, summary, current.ActiveProfile)
	if err != nil {
		return nil, err
	}
	return []StagedAction{action}, nil
}

func (s *Stager) NewSubsystemAction(ctx context.Context, current runtimeconfig.RuntimeConfig, payload SubsystemPayload) (StagedAction, error) {
	if err := payload.Validate(); err != nil {
		return StagedAction{}, err
	}
	return s.build(ctx, payload, summarizeSubsystem(payload), current.ActiveProfile)
}

func summarizeSubsystem(p SubsystemPayload) string {
	verb := "deactivate"
	if p.Activate() {
		verb = "activate"
	}

	ids := p.Identifiers()
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	summary := fmt.Sprintf("%s %s", verb, p.Subsystem())
	for _, k := range keys {
		summary += fmt.Sprintf(" %s=%s", k, ids[k])
	}
	return summary
}

func (s *Stager) build(ctx context.Context, payload Payload, summary string, current runtimeconfig.Profile) (StagedAction, error) {
	risk, err := s.classifier.Classify(ctx, payload, current)
	if err != nil {
		return StagedAction{}, err
	}
	return StagedAction{
		ID:             s.newID(),
		Payload:        payload,
		DiffSummary:    summary,
		RiskLevel:      risk,
		RequiredPhrase: RequiredPhrase(payload.ActionType()),
	}, nil
}
