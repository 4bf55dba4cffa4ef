// Package control is the in-process backend behind batch application: it
// checks phrases and approvals, commits runtime changes through the store and
// calls subsystem activation endpoints.
package control

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"runtimeops/internal/approval"
	"runtimeops/internal/logger"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	"runtimeops/internal/subsystem"
	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/metrics"
	"runtimeops/pkg/tracing"
)

const tracerName = "control"

type Approvals interface {
	Get(ctx context.Context, id string) (*approval.Request, error)
	Consume(ctx context.Context, req *approval.Request) error
}

type Activators interface {
	Get(sub staging.Subsystem) (subsystem.Activator, error)
}

type Notifier interface {
	PublishRuntimeChange(ctx context.Context, event *runtimeconfig.SwitchEvent, approvalID string) error
	PublishSubsystemToggled(ctx context.Context, payload staging.SubsystemPayload, actor, reason, approvalID string) error
}

type ControlPlane struct {
	store      runtimeconfig.Store
	approvals  Approvals
	policy     *ApprovalPolicy
	activators Activators
	notifier   Notifier
	logger     logger.Logger
	now        func() time.Time
}

var _ orchestrator.Backend = (*ControlPlane)(nil)

func NewControlPlane(
	store runtimeconfig.Store,
	approvals Approvals,
	policy *ApprovalPolicy,
	activators Activators,
	notifier Notifier,
	log logger.Logger,
) *ControlPlane {
	return &ControlPlane{
		store:      store,
		approvals:  approvals,
		policy:     policy,
		activators: activators,
		notifier:   notifier,
		logger:     log,
		now:        time.Now,
	}
}

func (c *ControlPlane) FetchRuntimeConfig(ctx context.Context) (*runtimeconfig.RuntimeConfig, error) {
	cfg, err := c.store.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetRuntimeState(string(cfg.ActiveProfile), cfg.SafeMode.FreezeUpdates, profileNames())
	return cfg, nil
}

func (c *ControlPlane) SwitchRuntime(ctx context.Context, req orchestrator.SwitchRequest) (*runtimeconfig.RuntimeConfig, error) {
	ctx, span := tracing.Start(ctx, tracerName, "control.switch_runtime",
		attribute.Int64("config.expected_version", req.ExpectedVersion),
	)
	defer span.End()

	if req.Payload == nil {
		return nil, pkgerrors.ErrValidation.WithMessage("runtime payload is required")
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	return c.commit(ctx, req.Payload, req.ExpectedVersion, req.Call, func(cfg *runtimeconfig.RuntimeConfig) bool {
		cfg.ActiveProfile = req.Payload.TargetProfile()
		cfg.Overrides = req.Payload.TargetOverrides()
		return true
	})
}

func (c *ControlPlane) FreezeUpdates(ctx context.Context, req orchestrator.SafeModeRequest) (*runtimeconfig.RuntimeConfig, error) {
	return c.setFrozen(ctx, staging.FreezePayload{}, req, true)
}

func (c *ControlPlane) UnfreezeUpdates(ctx context.Context, req orchestrator.SafeModeRequest) (*runtimeconfig.RuntimeConfig, error) {
	return c.setFrozen(ctx, staging.UnfreezePayload{}, req, false)
}

func (c *ControlPlane) setFrozen(ctx context.Context, payload staging.Payload, req orchestrator.SafeModeRequest, frozen bool) (*runtimeconfig.RuntimeConfig, error) {
	ctx, span := tracing.Start(ctx, tracerName, "control.safe_mode",
		attribute.String("action.type", string(payload.ActionType())),
		attribute.Int64("config.expected_version", req.ExpectedVersion),
	)
	defer span.End()

	return c.commit(ctx, payload, req.ExpectedVersion, req.Call, func(cfg *runtimeconfig.RuntimeConfig) bool {
		if cfg.SafeMode.FreezeUpdates == frozen {
			return false
		}
		cfg.SafeMode.FreezeUpdates = frozen
		return true
	})
}

// commit runs authorisation against the latest config, applies mutate and
// swaps the result in. mutate returns false when the change is already in
// place, in which case nothing is written.
func (c *ControlPlane) commit(
	ctx context.Context,
	payload staging.Payload,
	expectedVersion int64,
	call orchestrator.CallContext,
	mutate func(cfg *runtimeconfig.RuntimeConfig) bool,
) (*runtimeconfig.RuntimeConfig, error) {
	current, err := c.store.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	approved, err := c.authorize(ctx, payload, call, current.ActiveProfile)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if !mutate(next) {
		c.logger.InfowCtx(ctx, "Runtime change already in place", "action", payload.ActionType())
		return current, nil
	}

	if expectedVersion == 0 {
		expectedVersion = current.Version
	}
	cfg, event, err := c.store.Replace(ctx, runtimeconfig.ReplaceRequest{
		ExpectedVersion: expectedVersion,
		Config:          *next,
		Action:          string(payload.ActionType()),
		Reason:          call.Reason,
		Actor:           call.Actor,
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRuntimeChange(string(payload.ActionType()))
	metrics.SetRuntimeState(string(cfg.ActiveProfile), cfg.SafeMode.FreezeUpdates, profileNames())
	c.logger.InfowCtx(ctx, "Runtime config replaced",
		"action", payload.ActionType(),
		"version", cfg.Version,
		"active_profile", cfg.ActiveProfile,
		"freeze_updates", cfg.SafeMode.FreezeUpdates,
	)

	approvalID := c.consume(ctx, approved)
	if err := c.notifier.PublishRuntimeChange(ctx, event, approvalID); err != nil {
		metrics.IncFallbackUsage("runtime_events", "skip_publish", "publish_error")
		c.logger.ErrorwCtx(ctx, "Failed to publish runtime event", "action", payload.ActionType(), "error", err)
	}

	return cfg, nil
}

func (c *ControlPlane) ActivateSubsystem(ctx context.Context, req orchestrator.SubsystemRequest) error {
	return c.toggle(ctx, req)
}

func (c *ControlPlane) DeactivateSubsystem(ctx context.Context, req orchestrator.SubsystemRequest) error {
	return c.toggle(ctx, req)
}

func (c *ControlPlane) toggle(ctx context.Context, req orchestrator.SubsystemRequest) error {
	ctx, span := tracing.Start(ctx, tracerName, "control.subsystem")
	defer span.End()

	if req.Payload == nil {
		return pkgerrors.ErrValidation.WithMessage("subsystem payload is required")
	}
	if err := req.Payload.Validate(); err != nil {
		return pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	current, err := c.store.Fetch(ctx)
	if err != nil {
		return err
	}
	if current.SafeMode.FreezeUpdates {
		return pkgerrors.ErrConflict.WithMessage("freeze_updates is enabled").
			WithDetail("action_type", req.Payload.ActionType())
	}

	approved, err := c.authorize(ctx, req.Payload, req.Call, current.ActiveProfile)
	if err != nil {
		return err
	}

	activator, err := c.activators.Get(req.Payload.Subsystem())
	if err != nil {
		return err
	}

	call := subsystem.Request{
		Identifiers: req.Payload.Identifiers(),
		Reason:      req.Call.Reason,
		Phrase:      req.Call.Phrase,
		Actor:       req.Call.Actor,
		ApprovalID:  req.Call.ApprovalID,
	}
	if req.Payload.Activate() {
		err = activator.Activate(ctx, call)
	} else {
		err = activator.Deactivate(ctx, call)
	}
	if err != nil {
		return err
	}

	c.logger.InfowCtx(ctx, "Subsystem toggled",
		"subsystem", req.Payload.Subsystem(),
		"activate", req.Payload.Activate(),
	)

	approvalID := c.consume(ctx, approved)
	if err := c.notifier.PublishSubsystemToggled(ctx, req.Payload, req.Call.Actor, req.Call.Reason, approvalID); err != nil {
		metrics.IncFallbackUsage("runtime_events", "skip_publish", "publish_error")
		c.logger.ErrorwCtx(ctx, "Failed to publish subsystem event", "error", err)
	}
	return nil
}

// authorize checks the typed phrase and, when policy demands it, the
// presented approval. It returns the approval to consume after commit.
func (c *ControlPlane) authorize(ctx context.Context, payload staging.Payload, call orchestrator.CallContext, profile runtimeconfig.Profile) (*approval.Request, error) {
	actionType := payload.ActionType()
	phrase := staging.RequiredPhrase(actionType)
	if !staging.PhraseMatches(phrase, call.Phrase) {
		return nil, pkgerrors.ErrPhraseMismatch.
			WithMessage(fmt.Sprintf("typed phrase does not match %q", phrase)).
			WithDetail("action_type", actionType)
	}

	required, err := c.policy.Requires(ctx, payload, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate approval policy: %w", err)
	}
	if !required {
		return nil, nil
	}

	approvalRequired := pkgerrors.ErrApprovalRequired.
		WithMessage(fmt.Sprintf("%s requires approval by a second operator", actionType)).
		WithDetail("action_type", actionType)

	if call.ApprovalID == "" {
		return nil, approvalRequired
	}

	req, err := c.approvals.Get(ctx, call.ApprovalID)
	if pkgerrors.IsNotFound(err) {
		return nil, approvalRequired.WithDetail("approval_id", call.ApprovalID)
	}
	if err != nil {
		return nil, err
	}

	hash, err := staging.PayloadHash(payload)
	if err != nil {
		return nil, err
	}

	switch {
	case req.Status != approval.StatusApproved:
		return nil, approvalRequired.WithDetail("approval_status", req.Status)
	case req.ActionType != actionType || req.PayloadHash != hash || req.RequiredPhrase != phrase:
		return nil, approvalRequired.WithDetail("approval_mismatch", call.ApprovalID)
	case !req.ExpiresAt.IsZero() && !c.now().Before(req.ExpiresAt):
		return nil, approvalRequired.WithDetail("approval_status", approval.StatusExpired)
	}
	return req, nil
}

func (c *ControlPlane) consume(ctx context.Context, req *approval.Request) string {
	if req == nil {
		return ""
	}
	if err := c.approvals.Consume(ctx, req); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to consume approval after commit",
			"approval_id", req.ID,
			"error", err,
		)
	}
	return req.ID
}

func profileNames() []string {
	return []string{string(runtimeconfig.ProfileV1Primary), string(runtimeconfig.ProfileV0Fallback)}
}
