package approval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/logger"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	pkgerrors "runtimeops/pkg/errors"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(opts ...Option) (*Service, *memoryRepository, *clock) {
	repo := newMemoryRepository()
	c := &clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(c.Now), WithPendingTTL(time.Hour)}, opts...)
	svc := NewService(repo, logger.NopLogger(), opts...)
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}
	return svc, repo, c
}

func switchAction(profile runtimeconfig.Profile) staging.StagedAction {
	return staging.StagedAction{
		ID:             "a-switch",
		Payload:        staging.RuntimeSwitchPayload{Profile: profile},
		RequiredPhrase: staging.RequiredPhrase(staging.ActionRuntimeSwitch),
	}
}

func TestService_RequestApprovalIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Reason: "cut over", Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, "SWITCH RUNTIME", first.RequiredPhrase)
	assert.JSONEq(t, `{"profile":"V1_PRIMARY"}`, string(first.Payload))

	again := switchAction(runtimeconfig.ProfileV1Primary)
	again.ID = "another-batch-id"
	second, created, err := svc.RequestApproval(ctx, RequestInput{Action: again, Reason: "retry", Actor: "bob"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)

	other, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV0Fallback), Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestService_RequestApprovalUsesIndex(t *testing.T) {
	index := newMemoryIndex()
	svc, repo, _ := newTestService(WithPendingIndex(index))
	ctx := context.Background()

	first, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	key, err := KeyFor(switchAction(runtimeconfig.ProfileV1Primary))
	require.NoError(t, err)
	assert.Equal(t, first.ID, index.entries[key.String()])

	second, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestService_RequestApprovalFallsBackWhenIndexFails(t *testing.T) {
	index := newMemoryIndex()
	index.failWith = errRedisDown
	svc, repo, _ := newTestService(WithPendingIndex(index))
	ctx := context.Background()

	first, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	second, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestService_ExpiredPendingIsReplaced(t *testing.T) {
	svc, _, c := newTestService()
	ctx := context.Background()

	first, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	c.now = c.now.Add(2 * time.Hour)
	n, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	second, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestService_LapsedPendingIsReplacedBeforeSweep(t *testing.T) {
	svc, repo, c := newTestService()
	ctx := context.Background()

	first, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	c.now = c.now.Add(48 * time.Hour)

	second, created, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, old.Status)
}

func TestService_ApproveEnforcesTwoPersonRule(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID, "alice", "self")
	assert.True(t, pkgerrors.IsForbidden(err))

	_, err = svc.Approve(ctx, req.ID, "", "")
	assert.True(t, pkgerrors.IsValidation(err))

	approved, err := svc.Approve(ctx, req.ID, "bob", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "bob", approved.ResolvedBy)
	require.NotNil(t, approved.ResolvedAt)

	_, err = svc.Reject(ctx, req.ID, "carol", "too late")
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestService_ApproveReleasesIndex(t *testing.T) {
	index := newMemoryIndex()
	svc, _, _ := newTestService(WithPendingIndex(index))
	ctx := context.Background()

	req, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, index.entries, 1)

	_, err = svc.Reject(ctx, req.ID, "bob", "no")
	require.NoError(t, err)
	assert.Empty(t, index.entries)
}

func TestService_ApproveExpired(t *testing.T) {
	svc, _, c := newTestService()
	ctx := context.Background()

	req, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	c.now = c.now.Add(61 * time.Minute)
	_, err = svc.Approve(ctx, req.ID, "bob", "")
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestService_ConsumeIsSingleUse(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)

	assert.Error(t, svc.Consume(ctx, req), "pending requests cannot be consumed")

	approved, err := svc.Approve(ctx, req.ID, "bob", "")
	require.NoError(t, err)

	key := approved.Key()
	found, err := svc.FindApproved(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)

	require.NoError(t, svc.Consume(ctx, approved))
	assert.True(t, pkgerrors.IsConflict(svc.Consume(ctx, approved)))

	_, err = svc.FindApproved(ctx, key)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_ListPending(t *testing.T) {
	svc, _, c := newTestService()
	ctx := context.Background()

	_, _, err := svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV1Primary), Actor: "alice"})
	require.NoError(t, err)
	c.now = c.now.Add(time.Minute)
	_, _, err = svc.RequestApproval(ctx, RequestInput{Action: switchAction(runtimeconfig.ProfileV0Fallback), Actor: "alice"})
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "req-1", pending[0].ID)

	pending, err = svc.ListPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestService_RequestApprovalRequiresPayload(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.RequestApproval(context.Background(), RequestInput{Action: staging.StagedAction{ID: "x"}})
	assert.True(t, pkgerrors.IsValidation(err))
}
