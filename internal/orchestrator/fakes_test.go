package orchestrator

import (
	"context"
	"fmt"

	"runtimeops/internal/approval"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
)

type fakeBackend struct {
	cfg runtimeconfig.RuntimeConfig
	// fetchErrs is consumed per fetch call; a nil entry succeeds.
	fetchErrs []error
	fetches   int

	switchErr     error
	freezeErr     error
	unfreezeErr   error
	activateErr   map[staging.Subsystem]error
	deactivateErr error

	calls         []string
	switchReqs    []SwitchRequest
	safeModeReqs  []SafeModeRequest
	subsystemReqs []SubsystemRequest
}

func newFakeBackend(profile runtimeconfig.Profile, frozen bool) *fakeBackend {
	return &fakeBackend{
		cfg: runtimeconfig.RuntimeConfig{
			ActiveProfile: profile,
			Overrides:     runtimeconfig.Overrides{},
			SafeMode:      runtimeconfig.SafeMode{FreezeUpdates: frozen},
			Version:       1,
		},
		activateErr: map[staging.Subsystem]error{},
	}
}

func (f *fakeBackend) FetchRuntimeConfig(ctx context.Context) (*runtimeconfig.RuntimeConfig, error) {
	f.fetches++
	if f.fetches <= len(f.fetchErrs) && f.fetchErrs[f.fetches-1] != nil {
		return nil, f.fetchErrs[f.fetches-1]
	}
	return f.cfg.Clone(), nil
}

func (f *fakeBackend) SwitchRuntime(ctx context.Context, req SwitchRequest) (*runtimeconfig.RuntimeConfig, error) {
	f.calls = append(f.calls, string(req.Payload.ActionType()))
	f.switchReqs = append(f.switchReqs, req)
	if f.switchErr != nil {
		return nil, f.switchErr
	}
	f.cfg.ActiveProfile = req.Payload.TargetProfile()
	f.cfg.Overrides = req.Payload.TargetOverrides()
	f.cfg.Version++
	return f.cfg.Clone(), nil
}

func (f *fakeBackend) FreezeUpdates(ctx context.Context, req SafeModeRequest) (*runtimeconfig.RuntimeConfig, error) {
	return f.setFrozen(req, true, f.freezeErr)
}

func (f *fakeBackend) UnfreezeUpdates(ctx context.Context, req SafeModeRequest) (*runtimeconfig.RuntimeConfig, error) {
	return f.setFrozen(req, false, f.unfreezeErr)
}

func (f *fakeBackend) setFrozen(req SafeModeRequest, frozen bool, err error) (*runtimeconfig.RuntimeConfig, error) {
	name := string(staging.ActionUnfreeze)
	if frozen {
		name = string(staging.ActionFreeze)
	}
	f.calls = append(f.calls, name)
	f.safeModeReqs = append(f.safeModeReqs, req)
	if err != nil {
		return nil, err
	}
	f.cfg.SafeMode.FreezeUpdates = frozen
	f.cfg.Version++
	return f.cfg.Clone(), nil
}

func (f *fakeBackend) ActivateSubsystem(ctx context.Context, req SubsystemRequest) error {
	f.calls = append(f.calls, fmt.Sprintf("activate:%s", req.Payload.Subsystem()))
	f.subsystemReqs = append(f.subsystemReqs, req)
	return f.activateErr[req.Payload.Subsystem()]
}

func (f *fakeBackend) DeactivateSubsystem(ctx context.Context, req SubsystemRequest) error {
	f.calls = append(f.calls, fmt.Sprintf("deactivate:%s", req.Payload.Subsystem()))
	f.subsystemReqs = append(f.subsystemReqs, req)
	return f.deactivateErr
}

type fakeGate struct {
	decisions   map[string]approval.Decision
	checkErr    error
	escalateErr error
	escalateID  string

	checks      []string
	escalations []string
}

func newFakeGate() *fakeGate {
	return &fakeGate{decisions: map[string]approval.Decision{}, escalateID: "approval-1"}
}

func (g *fakeGate) Check(ctx context.Context, action staging.StagedAction) (approval.Decision, error) {
	g.checks = append(g.checks, action.ID)
	if g.checkErr != nil {
		return approval.Decision{}, g.checkErr
	}
	return g.decisions[action.ID], nil
}

func (g *fakeGate) Escalate(ctx context.Context, action staging.StagedAction, reason, actor string) (approval.Decision, error) {
	g.escalations = append(g.escalations, action.ID)
	if g.escalateErr != nil {
		return approval.Decision{}, g.escalateErr
	}
	return approval.Decision{Kind: approval.DecisionPending, RequestID: g.escalateID}, nil
}

type recorder struct {
	snapshots [][]ApplyProgress
}

func (r *recorder) observe(progress []ApplyProgress) error {
	r.snapshots = append(r.snapshots, progress)
	return nil
}

func (r *recorder) last() []ApplyProgress {
	return r.snapshots[len(r.snapshots)-1]
}

func action(id string, payload staging.Payload) staging.StagedAction {
	return staging.StagedAction{
		ID:             id,
		Payload:        payload,
		RequiredPhrase: staging.RequiredPhrase(payload.ActionType()),
	}
}

func freezeAction(id string) staging.StagedAction {
	return action(id, staging.FreezePayload{})
}

func unfreezeAction(id string) staging.StagedAction {
	return action(id, staging.UnfreezePayload{})
}

func switchAction(id string, profile runtimeconfig.Profile) staging.StagedAction {
	return action(id, staging.RuntimeSwitchPayload{Profile: profile})
}

func irtActivateAction(id, runID string) staging.StagedAction {
	return action(id, staging.IRTActivatePayload{RunID: runID})
}

func rankActivateAction(id, cohort string) staging.StagedAction {
	return action(id, staging.RankActivatePayload{CohortKey: cohort})
}

// request types every action's own phrase, the way the UI does.
func request(actions ...staging.StagedAction) BatchRequest {
	phrases := make(map[string]string, len(actions))
	for _, a := range actions {
		phrases[a.ID] = a.RequiredPhrase
	}
	return BatchRequest{
		Actions:       actions,
		Reason:        "weekly rollout",
		ActionPhrases: phrases,
		Actor:         "alice",
	}
}
