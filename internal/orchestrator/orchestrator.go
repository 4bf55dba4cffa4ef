package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"runtimeops/internal/approval"
	"runtimeops/internal/logger"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/logging"
	"runtimeops/pkg/metrics"
	"runtimeops/pkg/tracing"
)

const tracerName = "orchestrator"

type BatchOrchestrator struct {
	backend    Backend
	gate       Gate
	logger     logger.Logger
	newID      func() string
	maxActions int
}

type Option func(*BatchOrchestrator)

// WithMaxActions rejects batches with more than n actions. Zero disables the limit.
func WithMaxActions(n int) Option {
	return func(o *BatchOrchestrator) {
		o.maxActions = n
	}
}

func NewBatchOrchestrator(backend Backend, gate Gate, log logger.Logger, opts ...Option) *BatchOrchestrator {
	o := &BatchOrchestrator{
		backend: backend,
		gate:    gate,
		logger:  log,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ApplyBatch runs the staged actions strictly in sequence. Expected failures
// are reported per action in the result; the returned error is reserved for
// an invalid batch or an observer failure, in which case the partial result
// is still returned.
func (o *BatchOrchestrator) ApplyBatch(ctx context.Context, req BatchRequest, observer Observer) (*BatchResult, error) {
	if o.maxActions > 0 && len(req.Actions) > o.maxActions {
		return nil, pkgerrors.ErrValidation.
			WithMessage(fmt.Sprintf("batch has %d actions, limit is %d", len(req.Actions), o.maxActions))
	}
	if err := validateBatch(req); err != nil {
		return nil, err
	}

	b := newBatch(o.newID(), req, observer)
	ctx = logging.WithBatchID(ctx, b.id)
	if req.Actor != "" {
		ctx = logging.WithOperator(ctx, req.Actor)
	}

	ctx, span := tracing.Start(ctx, tracerName, "orchestrator.apply_batch",
		attribute.String("batch.id", b.id),
		attribute.Int("batch.actions", len(req.Actions)),
	)
	defer span.End()

	start := time.Now()
	o.logger.InfowCtx(ctx, "Applying batch", "actions", len(req.Actions), "reason", req.Reason)

	err := o.run(ctx, b)
	res := b.result()

	outcome := "completed"
	if b.halted {
		outcome = "halted"
	}
	if err != nil {
		outcome = "aborted"
		tracing.Fail(span, err)
		o.logger.ErrorwCtx(ctx, "Batch aborted", "error", err)
	} else {
		o.logger.InfowCtx(ctx, "Batch finished",
			"outcome", outcome,
			"succeeded", len(res.Succeeded),
			"failed", len(res.Failed),
			"skipped", len(res.Skipped),
			"awaiting_approval", len(res.AwaitingApproval),
		)
	}
	metrics.ObserveBatch(outcome, time.Since(start))

	return res, err
}

func validateBatch(req BatchRequest) error {
	if len(req.Actions) == 0 {
		return pkgerrors.ErrValidation.WithMessage("batch has no actions")
	}
	seen := make(map[string]struct{}, len(req.Actions))
	for _, action := range req.Actions {
		if err := action.Validate(); err != nil {
			return pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
		}
		if !action.Type().Valid() {
			return pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("action %s has unknown type %q", action.ID, action.Type()))
		}
		if _, dup := seen[action.ID]; dup {
			return pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("duplicate action id %s", action.ID))
		}
		seen[action.ID] = struct{}{}
	}
	return nil
}

func (o *BatchOrchestrator) run(ctx context.Context, b *batch) error {
	if err := b.emit(); err != nil {
		return err
	}

	cfg, fetchErr := o.fetch(ctx)
	if fetchErr != nil {
		o.logger.ErrorwCtx(ctx, "Preflight fetch failed", "error", fetchErr)
		b.halted = true
		return b.failPending(fetchErr)
	}
	b.preBatch = cfg.Clone()
	b.current = cfg

	halted, err := o.runPhase(ctx, b, staging.PhaseSafeMode)
	if err != nil || halted {
		return err
	}

	cfg, fetchErr = o.fetch(ctx)
	if fetchErr != nil {
		o.logger.ErrorwCtx(ctx, "Refetch after safe mode phase failed", "error", fetchErr)
		b.halted = true
		return b.failPending(fetchErr)
	}
	b.current = cfg
	b.frozen = cfg.SafeMode.FreezeUpdates

	halted, err = o.runPhase(ctx, b, staging.PhaseRuntime)
	if err != nil || halted {
		return err
	}

	_, err = o.runPhase(ctx, b, staging.PhaseSubsystem)
	return err
}

func (o *BatchOrchestrator) fetch(ctx context.Context) (*runtimeconfig.RuntimeConfig, *pkgerrors.Error) {
	cfg, err := o.backend.FetchRuntimeConfig(ctx)
	if err == nil && cfg == nil {
		err = errors.New("backend returned no runtime config")
	}
	if err != nil {
		return nil, pkgerrors.ErrFetchFailed.WithCause(err).WithMessage(fmt.Sprintf("failed to fetch runtime config: %v", err))
	}
	return cfg, nil
}

// runPhase reports halted when an action in the phase failed.
func (o *BatchOrchestrator) runPhase(ctx context.Context, b *batch, phase staging.Phase) (bool, error) {
	ctx, span := tracing.Start(ctx, tracerName, "orchestrator.phase", attribute.Int("phase", int(phase)))
	defer span.End()

	for i, action := range b.req.Actions {
		if action.Phase() != phase {
			continue
		}

		if phase == staging.PhaseSubsystem && b.frozen {
			o.logger.InfowCtx(ctx, "Skipping activation while frozen", "action_id", action.ID, "type", action.Type())
			metrics.ObserveAction(string(action.Type()), string(StatusSkipped), 0)
			if err := b.skip(i, frozenMessage); err != nil {
				return false, err
			}
			continue
		}

		status, err := o.runAction(ctx, b, i)
		if err != nil {
			return false, err
		}
		if status == StatusFailed {
			b.halted = true
			span.SetStatus(codes.Error, "phase halted")
			return true, nil
		}
	}
	return false, nil
}

func (o *BatchOrchestrator) runAction(ctx context.Context, b *batch, i int) (Status, error) {
	action := b.req.Actions[i]
	ctx = logging.WithActionID(ctx, action.ID)
	ctx, span := tracing.Start(ctx, tracerName, "orchestrator.action",
		attribute.String("action.id", action.ID),
		attribute.String("action.type", string(action.Type())),
	)
	defer span.End()

	start := time.Now()
	if err := b.running(i); err != nil {
		return "", err
	}

	status, requestID, actionErr := o.execute(ctx, b, action)

	var emitErr error
	switch status {
	case StatusSuccess:
		o.logger.InfowCtx(ctx, "Action applied", "type", action.Type())
		emitErr = b.succeed(i)
	case StatusAwaitingApproval:
		o.logger.InfowCtx(ctx, "Action awaiting approval", "type", action.Type(), "approval_request_id", requestID)
		emitErr = b.await(i, requestID)
	default:
		tracing.Fail(span, actionErr)
		o.logger.WarnwCtx(ctx, "Action failed", "type", action.Type(), "error_code", actionErr.Code, "error", actionErr)
		emitErr = b.fail(i, actionErr)
	}
	metrics.ObserveAction(string(action.Type()), string(status), time.Since(start))

	return status, emitErr
}

// execute runs phrase check, gate and backing call for one action. The
// phrase is always the one fixed for the action type, whatever the action carries.
func (o *BatchOrchestrator) execute(ctx context.Context, b *batch, action staging.StagedAction) (Status, string, *pkgerrors.Error) {
	required := staging.RequiredPhrase(action.Type())
	typed := b.req.phraseFor(action.ID)
	if !staging.PhraseMatches(required, typed) {
		return StatusFailed, "", pkgerrors.ErrPhraseMismatch.
			WithMessage(fmt.Sprintf("typed phrase does not match %q", required)).
			WithDetail("action_id", action.ID)
	}

	decision, err := o.gate.Check(ctx, action)
	if err != nil {
		return StatusFailed, "", classify(err)
	}

	call := CallContext{Reason: b.req.Reason, Phrase: typed, Actor: b.req.Actor}
	switch decision.Kind {
	case approval.DecisionPending:
		return StatusAwaitingApproval, decision.RequestID, nil
	case approval.DecisionApproved:
		call.ApprovalID = decision.RequestID
	}

	err = o.dispatch(ctx, b, action, call)
	if err == nil {
		return StatusSuccess, "", nil
	}

	if pkgerrors.IsApprovalRequired(err) {
		escalated, escErr := o.gate.Escalate(ctx, action, b.req.Reason, b.req.Actor)
		if escErr != nil {
			return StatusFailed, "", classify(escErr)
		}
		return StatusAwaitingApproval, escalated.RequestID, nil
	}

	return StatusFailed, "", classify(err)
}

func (o *BatchOrchestrator) dispatch(ctx context.Context, b *batch, action staging.StagedAction, call CallContext) error {
	safeMode := SafeModeRequest{ExpectedVersion: b.current.Version, Call: call}

	switch p := action.Payload.(type) {
	case staging.FreezePayload, *staging.FreezePayload:
		cfg, err := o.backend.FreezeUpdates(ctx, safeMode)
		b.observe(cfg)
		return err
	case staging.UnfreezePayload, *staging.UnfreezePayload:
		cfg, err := o.backend.UnfreezeUpdates(ctx, safeMode)
		b.observe(cfg)
		return err
	case staging.RuntimePayload:
		cfg, err := o.backend.SwitchRuntime(ctx, SwitchRequest{
			Payload:         p,
			ExpectedVersion: b.current.Version,
			Call:            call,
		})
		b.observe(cfg)
		return err
	case staging.SubsystemPayload:
		req := SubsystemRequest{Payload: p, Call: call}
		if p.Activate() {
			return o.backend.ActivateSubsystem(ctx, req)
		}
		return o.backend.DeactivateSubsystem(ctx, req)
	default:
		return fmt.Errorf("unsupported payload %T for action %s", p, action.ID)
	}
}

// observe tracks the newest config a backing call returned so the next
// write carries the right expected version.
func (b *batch) observe(cfg *runtimeconfig.RuntimeConfig) {
	if cfg != nil {
		b.current = cfg
	}
}

// classify keeps the kinds callers act on and folds everything else into
// BACKING_CALL_FAILED.
func classify(err error) *pkgerrors.Error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case pkgerrors.ErrPhraseMismatch.Code,
			pkgerrors.ErrConflict.Code,
			pkgerrors.ErrApprovalRequired.Code,
			pkgerrors.ErrFetchFailed.Code,
			pkgerrors.ErrBackingCallFailed.Code:
			return appErr
		}
	}
	return pkgerrors.ErrBackingCallFailed.WithCause(err).WithMessage(err.Error())
}
