package approval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/metrics"
)

type Repository interface {
	Create(ctx context.Context, req *Request) error
	// FindOpen returns the newest unexpired request for key in the given status.
	FindOpen(ctx context.Context, key Key, status Status, now time.Time) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	// Resolve moves a pending request to approved or rejected.
	Resolve(ctx context.Context, id string, status Status, by, note string, at time.Time) (*Request, error)
	MarkConsumed(ctx context.Context, id string, at time.Time) error
	ListPending(ctx context.Context, limit int, now time.Time) ([]Request, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

const requestColumns = `id, action_type, payload_hash, payload, required_phrase, reason, requested_by,
		status, resolved_by, resolution_note, created_at, updated_at, resolved_at, expires_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRequest(row interface{ Scan(...interface{}) error }) (*Request, error) {
	var (
		req        Request
		payload    []byte
		resolvedBy sql.NullString
		note       sql.NullString
		resolvedAt sql.NullTime
	)
	if err := row.Scan(
		&req.ID, &req.ActionType, &req.PayloadHash, &payload, &req.RequiredPhrase, &req.Reason, &req.RequestedBy,
		&req.Status, &resolvedBy, &note, &req.CreatedAt, &req.UpdatedAt, &resolvedAt, &req.ExpiresAt,
	); err != nil {
		return nil, err
	}
	req.Payload = payload
	req.ResolvedBy = resolvedBy.String
	req.ResolutionNote = note.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return &req, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req *Request) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "create_approval", err, time.Since(start)) }()

	query := `
		INSERT INTO approval_requests (id, action_type, payload_hash, payload, required_phrase, reason,
			requested_by, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	payload := []byte(req.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, query,
		req.ID, req.ActionType, req.PayloadHash, payload, req.RequiredPhrase, req.Reason,
		req.RequestedBy, req.Status, req.CreatedAt, req.UpdatedAt, req.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return pkgerrors.ErrConflict.WithCause(err).WithMessage("a pending approval request already exists for this action")
		}
		return fmt.Errorf("failed to create approval request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindOpen(ctx context.Context, key Key, status Status, now time.Time) (req *Request, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "find_approval", err, time.Since(start)) }()

	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE action_type = $1 AND payload_hash = $2 AND required_phrase = $3 AND status = $4 AND expires_at > $5
		ORDER BY created_at DESC
		LIMIT 1
	`

	req, err = scanRequest(r.db.QueryRowContext(ctx, query, key.ActionType, key.PayloadHash, key.Phrase, status, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("no matching approval request")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find approval request: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (req *Request, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "get_approval", err, time.Since(start)) }()

	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE id = $1
	`

	req, err = scanRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage(fmt.Sprintf("approval request %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Resolve(ctx context.Context, id string, status Status, by, note string, at time.Time) (req *Request, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "resolve_approval", err, time.Since(start)) }()

	query := `
		UPDATE approval_requests
		SET status = $1, resolved_by = $2, resolution_note = $3, resolved_at = $4, updated_at = $4
		WHERE id = $5 AND status = 'pending'
		RETURNING ` + requestColumns

	req, err = scanRequest(r.db.QueryRowContext(ctx, query, status, by, note, at, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.notPending(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approval request: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) notPending(ctx context.Context, id string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return pkgerrors.ErrConflict.
		WithMessage(fmt.Sprintf("approval request %s is %s", id, existing.Status)).
		WithDetail("status", string(existing.Status))
}

func (r *PostgresRepository) MarkConsumed(ctx context.Context, id string, at time.Time) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "consume_approval", err, time.Since(start)) }()

	query := `
		UPDATE approval_requests
		SET status = 'consumed', updated_at = $1
		WHERE id = $2 AND status = 'approved'
	`

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to consume approval request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrConflict.WithMessage(fmt.Sprintf("approval request %s is not approved or already consumed", id))
	}
	return nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, limit int, now time.Time) (requests []Request, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "list_pending_approvals", err, time.Since(start)) }()

	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = 'pending' AND expires_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	requests = []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval requests: %w", err)
	}

	return requests, nil
}

func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "expire_approvals", err, time.Since(start)) }()

	query := `
		UPDATE approval_requests
		SET status = 'expired', updated_at = $1
		WHERE status = 'pending' AND expires_at <= $1
	`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire approval requests: %w", err)
	}
	return res.RowsAffected()
}
