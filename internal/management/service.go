package management

import (
	"context"
	"errors"
	"fmt"

	"runtimeops/internal/approval"
	"runtimeops/internal/bridge"
	"runtimeops/internal/constants"
	"runtimeops/internal/logger"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/logging"
	"runtimeops/pkg/metrics"
)

type service struct {
	store     runtimeconfig.Store
	stager    *staging.Stager
	applier   BatchApplier
	approvals Approvals
	tracker   BridgeTracker
	events    EventPublisher
	logger    logger.Logger
}

type ServiceOption func(*service)

// WithBridge enables the bridge endpoints and staging advisories.
func WithBridge(tracker BridgeTracker) ServiceOption {
	return func(s *service) {
		s.tracker = tracker
	}
}

func WithEvents(events EventPublisher) ServiceOption {
	return func(s *service) {
		s.events = events
	}
}

func NewService(
	store runtimeconfig.Store,
	stager *staging.Stager,
	applier BatchApplier,
	approvals Approvals,
	log logger.Logger,
	opts ...ServiceOption,
) Service {
	s := &service{
		store:     store,
		stager:    stager,
		applier:   applier,
		approvals: approvals,
		logger:    log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) GetRuntimeConfig(ctx context.Context) (*runtimeconfig.RuntimeConfig, error) {
	return s.fetch(ctx)
}

func (s *service) fetch(ctx context.Context) (*runtimeconfig.RuntimeConfig, error) {
	cfg, err := s.store.Fetch(ctx)
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgerrors.ErrFetchFailed.WithCause(err).WithMessage(fmt.Sprintf("failed to fetch runtime config: %v", err))
	}
	return cfg, nil
}

func (s *service) GetHistory(ctx context.Context, limit int) ([]runtimeconfig.SwitchEvent, error) {
	events, err := s.store.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []runtimeconfig.SwitchEvent{}
	}
	return events, nil
}

// Stage diffs the desired state against the authoritative config. Actions
// come back in phase order: safe mode, runtime, subsystems.
func (s *service) Stage(ctx context.Context, req StageRequest) (*StageResponse, error) {
	if err := ValidateStageRequest(req); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	current, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	actions := make([]staging.StagedAction, 0)

	if req.FreezeUpdates != nil {
		staged, err := s.stager.StageSafeMode(ctx, *current, *req.FreezeUpdates)
		if err != nil {
			return nil, fmt.Errorf("failed to stage safe mode: %w", err)
		}
		actions = append(actions, staged...)
	}

	if req.Runtime != nil {
		staged, err := s.stager.StageRuntime(ctx, *current, *req.Runtime)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
		}
		actions = append(actions, staged...)
	}

	for i, change := range req.Subsystems {
		payload, err := staging.DecodePayload(change.Type, change.Payload)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithCause(err).
				WithMessage(fmt.Sprintf("subsystems[%d]: %v", i, err))
		}
		sub, ok := payload.(staging.SubsystemPayload)
		if !ok {
			return nil, pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("subsystems[%d]: %s is not a subsystem action", i, change.Type))
		}
		action, err := s.stager.NewSubsystemAction(ctx, *current, sub)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithCause(err).
				WithMessage(fmt.Sprintf("subsystems[%d]: %v", i, err))
		}
		actions = append(actions, action)
	}

	advisories := []string{}
	if s.tracker != nil && proposesSwitch(actions) {
		advisories = append(advisories, s.tracker.Advisory(ctx)...)
	}

	s.logger.InfowCtx(ctx, "Staged actions", "count", len(actions), "advisories", len(advisories))

	return &StageResponse{
		Current:    current,
		Actions:    actions,
		Advisories: advisories,
	}, nil
}

// proposesSwitch reports whether a runtime profile switch is among the actions.
func proposesSwitch(actions []staging.StagedAction) bool {
	for _, a := range actions {
		if a.Type() == staging.ActionRuntimeSwitch {
			return true
		}
	}
	return false
}

// ApplyBatch runs the batch as the operator on ctx. A batch_applied event is
// published for every batch that started, including aborted ones.
func (s *service) ApplyBatch(ctx context.Context, req ApplyBatchRequest, observer orchestrator.Observer) (*orchestrator.BatchResult, error) {
	if err := ValidateApplyBatchRequest(req); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	actor := logging.GetOperator(ctx)
	result, err := s.applier.ApplyBatch(ctx, orchestrator.BatchRequest{
		Actions:            req.Actions,
		Reason:             req.Reason,
		ConfirmationPhrase: req.ConfirmationPhrase,
		ActionPhrases:      req.ActionPhrases,
		Actor:              actor,
	}, observer)
	if result == nil {
		return nil, err
	}

	if s.events != nil {
		if pubErr := s.events.PublishBatchApplied(ctx, result, actor, req.Reason); pubErr != nil {
			metrics.IncFallbackUsage("runtime_events", "skip_publish", "publish_error")
			s.logger.ErrorwCtx(ctx, "Failed to publish batch event", "batch_id", result.BatchID, "error", pubErr)
		}
	}

	return result, err
}

func (s *service) ListApprovals(ctx context.Context, limit int) ([]approval.Request, error) {
	requests, err := s.approvals.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []approval.Request{}
	}
	return requests, nil
}

func (s *service) GetApproval(ctx context.Context, id string) (*approval.Request, error) {
	return s.approvals.Get(ctx, id)
}

func (s *service) ApproveRequest(ctx context.Context, id, note string) (*approval.Request, error) {
	return s.resolve(ctx, id, note, s.approvals.Approve)
}

func (s *service) RejectRequest(ctx context.Context, id, note string) (*approval.Request, error) {
	return s.resolve(ctx, id, note, s.approvals.Reject)
}

func (s *service) resolve(
	ctx context.Context,
	id, note string,
	fn func(ctx context.Context, id, approver, note string) (*approval.Request, error),
) (*approval.Request, error) {
	approver := logging.GetOperator(ctx)
	if approver == logging.SystemOperator {
		return nil, pkgerrors.ErrValidation.WithMessage(constants.HeaderOperatorID + " header is required to resolve approvals")
	}

	req, err := fn(ctx, id, approver, note)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if pubErr := s.events.PublishApprovalResolved(ctx, req); pubErr != nil {
			metrics.IncFallbackUsage("runtime_events", "skip_publish", "publish_error")
			s.logger.ErrorwCtx(ctx, "Failed to publish approval event", "request_id", req.ID, "error", pubErr)
		}
	}
	return req, nil
}

func (s *service) BridgeSummary(ctx context.Context, userID string) (*bridge.Summary, error) {
	if s.tracker == nil {
		return nil, bridgeUnavailable()
	}
	return s.tracker.Summary(ctx, userID)
}

func (s *service) BridgeJobs(ctx context.Context, userID string) ([]bridge.Row, error) {
	if s.tracker == nil {
		return nil, bridgeUnavailable()
	}
	rows, err := s.tracker.RowsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []bridge.Row{}
	}
	return rows, nil
}

func bridgeUnavailable() error {
	return pkgerrors.ErrServiceUnavailable.WithMessage("bridge job tracking is not configured")
}
