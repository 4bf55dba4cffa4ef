package approval

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "runtimeops/pkg/errors"
)

var columns = []string{
	"id", "action_type", "payload_hash", "payload", "required_phrase", "reason", "requested_by",
	"status", "resolved_by", "resolution_note", "created_at", "updated_at", "resolved_at", "expires_at",
}

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestPostgresRepository_CreateDuplicatePending(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO approval_requests").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &Request{ID: "r1", ActionType: "FREEZE", Status: StatusPending})
	assert.True(t, pkgerrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO approval_requests").
		WithArgs("r1", "FREEZE", "abc", []byte("{}"), "FREEZE UPDATES", "reason", "alice", "pending", now, now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &Request{
		ID: "r1", ActionType: "FREEZE", PayloadHash: "abc", RequiredPhrase: "FREEZE UPDATES",
		Reason: "reason", RequestedBy: "alice", Status: StatusPending,
		CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindOpen(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM approval_requests WHERE action_type = \\$1").
		WithArgs("RUNTIME_SWITCH", "hash", "SWITCH RUNTIME", "approved", now).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"r1", "RUNTIME_SWITCH", "hash", []byte(`{"profile":"V1_PRIMARY"}`), "SWITCH RUNTIME", "cut over", "alice",
			"approved", "bob", nil, now, now, now, now.Add(time.Hour),
		))

	req, err := repo.FindOpen(context.Background(), Key{ActionType: "RUNTIME_SWITCH", PayloadHash: "hash", Phrase: "SWITCH RUNTIME"}, StatusApproved, now)
	require.NoError(t, err)
	assert.Equal(t, "r1", req.ID)
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, "bob", req.ResolvedBy)
	assert.Empty(t, req.ResolutionNote)
	require.NotNil(t, req.ResolvedAt)
	assert.JSONEq(t, `{"profile":"V1_PRIMARY"}`, string(req.Payload))
}

func TestPostgresRepository_FindOpenNone(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM approval_requests").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.FindOpen(context.Background(), Key{ActionType: "FREEZE"}, StatusPending, time.Now())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPostgresRepository_ResolveNotPending(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE approval_requests").
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("SELECT (.+) FROM approval_requests WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"r1", "FREEZE", "hash", []byte(`{}`), "FREEZE UPDATES", "", "alice",
			"rejected", "bob", "no", now, now, now, now.Add(time.Hour),
		))

	_, err := repo.Resolve(context.Background(), "r1", StatusApproved, "carol", "", now)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkConsumed(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectExec("UPDATE approval_requests SET status = 'consumed'").
		WithArgs(now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkConsumed(context.Background(), "r1", now))

	mock.ExpectExec("UPDATE approval_requests SET status = 'consumed'").
		WithArgs(now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, pkgerrors.IsConflict(repo.MarkConsumed(context.Background(), "r1", now)))
}

func TestPostgresRepository_ExpireStale(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectExec("UPDATE approval_requests SET status = 'expired'").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostgresRepository_ListPending(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM approval_requests WHERE status = 'pending'").
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("r1", "FREEZE", "h1", []byte(`{}`), "FREEZE UPDATES", "", "alice", "pending", nil, nil, now, now, nil, now.Add(time.Hour)).
			AddRow("r2", "IRT_ACTIVATE", "h2", []byte(`{"run_id":"r"}`), "ACTIVATE IRT", "", "alice", "pending", nil, nil, now, now, nil, now.Add(time.Hour)))

	requests, err := repo.ListPending(context.Background(), 50, now)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Nil(t, requests[0].ResolvedAt)
	assert.Equal(t, "IRT_ACTIVATE", string(requests[1].ActionType))
}
