package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"runtimeops/internal/constants"
	"runtimeops/internal/logger"
	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/metrics"
)

type Service struct {
	repo       Repository
	index      PendingIndex
	logger     logger.Logger
	pendingTTL time.Duration
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

// WithPendingIndex puts a fast lookup index in front of the repository.
func WithPendingIndex(index PendingIndex) Option {
	return func(s *Service) { s.index = index }
}

func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		logger:     log,
		pendingTTL: constants.DefaultPendingApprovalTTL,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RequestInput struct {
	Action staging.StagedAction
	Reason string
	Actor  string
}

// RequestApproval files a pending request for the action. When an identical
// pending request exists its id is returned and created is false.
func (s *Service) RequestApproval(ctx context.Context, in RequestInput) (req *Request, created bool, err error) {
	if in.Action.Payload == nil {
		return nil, false, pkgerrors.ErrValidation.WithMessage("action payload is required")
	}

	key, err := KeyFor(in.Action)
	if err != nil {
		return nil, false, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	if existing := s.pendingFromIndex(ctx, key); existing != nil {
		return existing, false, nil
	}

	existing, err := s.repo.FindOpen(ctx, key, StatusPending, s.now())
	if err == nil {
		s.reserve(ctx, key, existing.ID, existing.ExpiresAt)
		return existing, false, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, false, err
	}

	payload, err := json.Marshal(in.Action.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now().UTC()
	req = &Request{
		ID:             s.newID(),
		ActionType:     key.ActionType,
		PayloadHash:    key.PayloadHash,
		Payload:        payload,
		RequiredPhrase: key.Phrase,
		Reason:         in.Reason,
		RequestedBy:    in.Actor,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.pendingTTL),
	}

	if err := s.repo.Create(ctx, req); err != nil {
		if !pkgerrors.IsConflict(err) {
			return nil, false, err
		}
		// lost a race with a concurrent request for the same key
		existing, findErr := s.repo.FindOpen(ctx, key, StatusPending, s.now())
		if findErr == nil {
			return existing, false, nil
		}
		// the blocking row is a lapsed pending request the sweeper has not reached yet
		if _, expErr := s.repo.ExpireStale(ctx, s.now().UTC()); expErr != nil {
			return nil, false, err
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return nil, false, err
		}
	}

	s.reserve(ctx, key, req.ID, req.ExpiresAt)
	metrics.IncApprovalRequest(string(req.ActionType), "requested")
	s.logger.InfowCtx(ctx, "Approval request created",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"requested_by", req.RequestedBy,
	)

	return req, true, nil
}

func (s *Service) pendingFromIndex(ctx context.Context, key Key) *Request {
	if s.index == nil {
		return nil
	}

	id, err := s.index.Lookup(ctx, key)
	if err != nil {
		metrics.IncFallbackUsage("approval_index", "postgres", "lookup_failed")
		s.logger.WarnwCtx(ctx, "Pending index lookup failed, falling back to postgres", "error", err)
		return nil
	}
	if id == "" {
		return nil
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil || req.Status != StatusPending || !req.ExpiresAt.After(s.now()) {
		return nil
	}
	return req
}

func (s *Service) reserve(ctx context.Context, key Key, id string, expiresAt time.Time) {
	if s.index == nil {
		return
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if _, err := s.index.Reserve(ctx, key, id, ttl); err != nil {
		metrics.IncFallbackUsage("approval_index", "postgres", "reserve_failed")
		s.logger.WarnwCtx(ctx, "Failed to index pending approval", "request_id", id, "error", err)
	}
}

func (s *Service) release(ctx context.Context, key Key) {
	if s.index == nil {
		return
	}
	if err := s.index.Release(ctx, key); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to release pending approval index", "key", key.String(), "error", err)
	}
}

// Approve resolves a pending request. The approver must differ from the requester.
func (s *Service) Approve(ctx context.Context, id, approver, note string) (*Request, error) {
	return s.resolve(ctx, id, approver, note, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, id, approver, note string) (*Request, error) {
	return s.resolve(ctx, id, approver, note, StatusRejected)
}

func (s *Service) resolve(ctx context.Context, id, approver, note string, status Status) (*Request, error) {
	if approver == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("approver is required")
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequestedBy == approver {
		return nil, pkgerrors.ErrForbidden.WithMessage("an operator cannot resolve their own approval request")
	}
	if req.Status == StatusPending && !req.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.ErrConflict.WithMessage(fmt.Sprintf("approval request %s has expired", id))
	}

	resolved, err := s.repo.Resolve(ctx, id, status, approver, note, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.release(ctx, resolved.Key())
	metrics.IncApprovalRequest(string(resolved.ActionType), string(status))
	s.logger.InfowCtx(ctx, "Approval request resolved",
		"request_id", id,
		"status", status,
		"resolved_by", approver,
	)

	return resolved, nil
}

// Consume marks an approved request as spent so it cannot authorise a second call.
func (s *Service) Consume(ctx context.Context, req *Request) error {
	if err := s.repo.MarkConsumed(ctx, req.ID, s.now().UTC()); err != nil {
		return err
	}
	metrics.IncApprovalRequest(string(req.ActionType), string(StatusConsumed))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	return s.repo.ListPending(ctx, limit, s.now())
}

// FindApproved returns an approved, unconsumed request for key or ErrNotFound.
func (s *Service) FindApproved(ctx context.Context, key Key) (*Request, error) {
	return s.repo.FindOpen(ctx, key, StatusApproved, s.now())
}

func (s *Service) FindPending(ctx context.Context, key Key) (*Request, error) {
	if req := s.pendingFromIndex(ctx, key); req != nil {
		return req, nil
	}
	return s.repo.FindOpen(ctx, key, StatusPending, s.now())
}

func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfowCtx(ctx, "Expired stale approval requests", "count", n)
	}
	return n, nil
}
