package bridge

import (
	"context"
	"fmt"

	"runtimeops/internal/constants"
	"runtimeops/internal/logger"
	pkgerrors "runtimeops/pkg/errors"
)

// Tracker is read-only. Its advisories never block a batch.
type Tracker struct {
	repo   Repository
	logger logger.Logger
}

func NewTracker(repo Repository, log logger.Logger) *Tracker {
	return &Tracker{repo: repo, logger: log}
}

func (t *Tracker) Summary(ctx context.Context, userID string) (*Summary, error) {
	counts, err := t.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithCause(err).WithMessage("bridge job store is unavailable")
	}

	summary := &Summary{CountsByStatus: make(map[Status]int, len(Statuses))}
	for _, status := range Statuses {
		summary.CountsByStatus[status] = 0
	}
	for status, n := range counts {
		summary.CountsByStatus[status] = n
		summary.Total += n
	}
	return summary, nil
}

func (t *Tracker) RowsForUser(ctx context.Context, userID string) ([]Row, error) {
	if userID == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("user_id is required")
	}
	rows, err := t.repo.FindByUser(ctx, userID, constants.MaxLimit)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithCause(err).WithMessage("bridge job store is unavailable")
	}
	return rows, nil
}

// Advisory returns warnings to show next to a proposed runtime switch. A
// tracker failure becomes a warning too.
func (t *Tracker) Advisory(ctx context.Context) []string {
	summary, err := t.Summary(ctx, "")
	if err != nil {
		t.logger.WarnwCtx(ctx, "Bridge summary unavailable for advisory", "error", err)
		return []string{"Bridge job status is unavailable; check migrations manually before switching."}
	}

	var warnings []string
	if n := summary.CountsByStatus[StatusRunning]; n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d bridge job(s) still running from a previous switch.", n))
	}
	if n := summary.CountsByStatus[StatusQueued]; n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d bridge job(s) queued and not yet started.", n))
	}
	if n := summary.CountsByStatus[StatusFailed]; n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d bridge job(s) failed; affected users may hold stale state.", n))
	}
	return warnings
}
