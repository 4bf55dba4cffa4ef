//go:build integration

package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/logger"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/testinfra"
	pkgerrors "runtimeops/pkg/errors"
)

func pendingRequest(now time.Time, ttl time.Duration) *Request {
	return &Request{
		ID:             uuid.New().String(),
		ActionType:     "RUNTIME_SWITCH",
		PayloadHash:    "hash-1",
		Payload:        []byte(`{"profile":"V0_FALLBACK"}`),
		RequiredPhrase: "SWITCH RUNTIME",
		Reason:         "incident 42",
		RequestedBy:    "alice",
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

func TestPostgresRepository_Lifecycle(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := NewRepository(infra.PostgresDB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	req := pendingRequest(now, time.Hour)
	require.NoError(t, repo.Create(ctx, req))

	dup := pendingRequest(now, time.Hour)
	assert.True(t, pkgerrors.IsConflict(repo.Create(ctx, dup)))

	found, err := repo.FindOpen(ctx, req.Key(), StatusPending, now)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)
	assert.JSONEq(t, `{"profile":"V0_FALLBACK"}`, string(found.Payload))

	pending, err := repo.ListPending(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := repo.Resolve(ctx, req.ID, StatusApproved, "bob", "looks right", now)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "bob", approved.ResolvedBy)
	require.NotNil(t, approved.ResolvedAt)

	_, err = repo.Resolve(ctx, req.ID, StatusRejected, "carol", "", now)
	assert.True(t, pkgerrors.IsConflict(err))

	require.NoError(t, repo.MarkConsumed(ctx, req.ID, now))
	assert.True(t, pkgerrors.IsConflict(repo.MarkConsumed(ctx, req.ID, now)))

	_, err = repo.FindOpen(ctx, req.Key(), StatusApproved, now)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPostgresRepository_SelfApprovalRejectedByDatabase(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := NewRepository(infra.PostgresDB)
	ctx := context.Background()
	now := time.Now().UTC()

	req := pendingRequest(now, time.Hour)
	require.NoError(t, repo.Create(ctx, req))

	_, err := repo.Resolve(ctx, req.ID, StatusApproved, "alice", "", now)
	require.Error(t, err)

	stored, err := repo.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestPostgresRepository_ExpireStale(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := NewRepository(infra.PostgresDB)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := pendingRequest(now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	n, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status)

	// The partial unique index only covers pending rows.
	fresh := pendingRequest(now, time.Hour)
	require.NoError(t, repo.Create(ctx, fresh))
}

func TestService_WithRedisPendingIndex(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true, Redis: true})
	index := NewRedisPendingIndex(infra.RedisClient)
	svc := NewService(NewRepository(infra.PostgresDB), logger.NopLogger(), WithPendingIndex(index))
	ctx := context.Background()

	in := RequestInput{
		Action: switchAction(runtimeconfig.ProfileV0Fallback),
		Reason: "incident 42",
		Actor:  "alice",
	}

	first, created, err := svc.RequestApproval(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	id, err := index.Lookup(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	second, created, err := svc.RequestApproval(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.Approve(ctx, first.ID, "bob", "")
	require.NoError(t, err)

	id, err = index.Lookup(ctx, first.Key())
	require.NoError(t, err)
	assert.Empty(t, id)
}
