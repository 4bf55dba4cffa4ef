package runtimeconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/metrics"
)

const (
	selectConfigQuery = `SELECT active_profile, overrides, freeze_updates, prefer_cache, active_since, version FROM runtime_config WHERE id = 1`

	updateConfigQuery = `UPDATE runtime_config SET active_profile = $1, overrides = $2, freeze_updates = $3, prefer_cache = $4, active_since = $5, version = $6, updated_at = $7 WHERE id = 1 AND version = $8`

	insertEventQuery = `INSERT INTO switch_events (id, action, previous_config, new_config, reason, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectHistoryQuery = `SELECT id, action, previous_config, new_config, reason, created_by, created_at FROM switch_events ORDER BY created_at DESC LIMIT $1`
)

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*RuntimeConfig, error) {
	var (
		cfg       RuntimeConfig
		overrides []byte
	)
	if err := row.Scan(
		&cfg.ActiveProfile, &overrides, &cfg.SafeMode.FreezeUpdates,
		&cfg.SafeMode.PreferCache, &cfg.ActiveSince, &cfg.Version,
	); err != nil {
		return nil, err
	}

	cfg.Overrides = Overrides{}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &cfg.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
		}
	}
	return &cfg, nil
}

func (s *PostgresStore) Fetch(ctx context.Context) (cfg *RuntimeConfig, err error) {
	start := s.now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "fetch_runtime_config", err, time.Since(start)) }()

	cfg, err = scanConfig(s.db.QueryRowContext(ctx, selectConfigQuery))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("runtime config has not been initialized")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runtime config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) Replace(ctx context.Context, req ReplaceRequest) (cfg *RuntimeConfig, event *SwitchEvent, err error) {
	if err := req.Config.Validate(); err != nil {
		return nil, nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	start := s.now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "replace_runtime_config", err, time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	previous, err := scanConfig(tx.QueryRowContext(ctx, selectConfigQuery+" FOR UPDATE"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, pkgerrors.ErrNotFound.WithMessage("runtime config has not been initialized")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock runtime config: %w", err)
	}

	if previous.Version != req.ExpectedVersion {
		return nil, nil, staleVersion(req.ExpectedVersion, previous.Version)
	}

	now := s.now().UTC()
	next := req.Config.Normalized()
	next.Version = previous.Version + 1
	next.ActiveSince = previous.ActiveSince
	if next.ActiveProfile != previous.ActiveProfile {
		next.ActiveSince = now
	}

	overridesJSON, err := json.Marshal(next.Overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal overrides: %w", err)
	}

	res, err := tx.ExecContext(ctx, updateConfigQuery,
		next.ActiveProfile, overridesJSON, next.SafeMode.FreezeUpdates, next.SafeMode.PreferCache,
		next.ActiveSince, next.Version, now, previous.Version,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update runtime config: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil, staleVersion(req.ExpectedVersion, -1)
	}

	event = &SwitchEvent{
		ID:             uuid.New().String(),
		Action:         req.Action,
		PreviousConfig: *previous,
		NewConfig:      *next,
		Reason:         req.Reason,
		CreatedBy:      req.Actor,
		CreatedAt:      now,
	}

	previousJSON, err := json.Marshal(event.PreviousConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal previous config: %w", err)
	}
	nextJSON, err := json.Marshal(event.NewConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal new config: %w", err)
	}

	if _, err = tx.ExecContext(ctx, insertEventQuery,
		event.ID, event.Action, previousJSON, nextJSON, event.Reason, event.CreatedBy, event.CreatedAt,
	); err != nil {
		return nil, nil, fmt.Errorf("failed to append switch event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit runtime config: %w", err)
	}

	return next, event, nil
}

func staleVersion(expected, actual int64) error {
	err := pkgerrors.ErrConflict.
		WithMessage("runtime config changed since it was fetched; refresh and restage").
		WithDetail("expected_version", expected)
	if actual >= 0 {
		err = err.WithDetail("actual_version", actual)
	}
	return err
}

func (s *PostgresStore) History(ctx context.Context, limit int) (events []SwitchEvent, err error) {
	start := s.now()
	defer func() { metrics.ObserveDatabaseQuery("postgres", "list_switch_events", err, time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx, selectHistoryQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query switch events: %w", err)
	}
	defer rows.Close()

	events = []SwitchEvent{}
	for rows.Next() {
		var (
			e                     SwitchEvent
			previousJSON, newJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &previousJSON, &newJSON, &e.Reason, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan switch event: %w", err)
		}
		if err := json.Unmarshal(previousJSON, &e.PreviousConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal previous config: %w", err)
		}
		if err := json.Unmarshal(newJSON, &e.NewConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new config: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate switch events: %w", err)
	}

	return events, nil
}
