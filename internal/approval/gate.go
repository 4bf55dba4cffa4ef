package approval

import (
	"context"

	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
)

type DecisionKind int

const (
	// DecisionRequiresNew means nothing is on file; the backing call decides.
	DecisionRequiresNew DecisionKind = iota
	DecisionApproved
	DecisionPending
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionApproved:
		return "approved"
	case DecisionPending:
		return "pending_approval"
	default:
		return "requires_new_approval"
	}
}

type Decision struct {
	Kind      DecisionKind
	RequestID string
}

// Gate answers, per action, whether an approval already covers it.
type Gate struct {
	service *Service
}

func NewGate(service *Service) *Gate {
	return &Gate{service: service}
}

func (g *Gate) Check(ctx context.Context, action staging.StagedAction) (Decision, error) {
	key, err := KeyFor(action)
	if err != nil {
		return Decision{}, err
	}

	approved, err := g.service.FindApproved(ctx, key)
	if err == nil {
		return Decision{Kind: DecisionApproved, RequestID: approved.ID}, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return Decision{}, err
	}

	pending, err := g.service.FindPending(ctx, key)
	if err == nil {
		return Decision{Kind: DecisionPending, RequestID: pending.ID}, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return Decision{}, err
	}

	return Decision{Kind: DecisionRequiresNew}, nil
}

// Escalate files (or finds) the pending request for an action the backing
// service refused with APPROVAL_REQUIRED.
func (g *Gate) Escalate(ctx context.Context, action staging.StagedAction, reason, actor string) (Decision, error) {
	req, _, err := g.service.RequestApproval(ctx, RequestInput{Action: action, Reason: reason, Actor: actor})
	if err != nil {
		return Decision{}, err
	}
	return Decision{Kind: DecisionPending, RequestID: req.ID}, nil
}
