//go:build integration

package runtimeconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/testinfra"
	pkgerrors "runtimeops/pkg/errors"
)

func TestPostgresStore_SeededConfig(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	store := NewPostgresStore(infra.PostgresDB)

	cfg, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProfileV1Primary, cfg.ActiveProfile)
	assert.Equal(t, int64(1), cfg.Version)
	assert.False(t, cfg.SafeMode.FreezeUpdates)
	assert.Empty(t, cfg.Overrides)
}

func TestPostgresStore_ReplaceAndHistory(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	store := NewPostgresStore(infra.PostgresDB)
	ctx := context.Background()

	current, err := store.Fetch(ctx)
	require.NoError(t, err)

	next := current.Clone()
	next.ActiveProfile = ProfileV0Fallback
	next.Overrides = Overrides{ModuleRanking: VersionV1, ModuleItemSelection: VersionInherit}

	saved, event, err := store.Replace(ctx, ReplaceRequest{
		ExpectedVersion: current.Version,
		Config:          *next,
		Action:          "RUNTIME_SWITCH",
		Reason:          "incident 42",
		Actor:           "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	assert.Equal(t, Overrides{ModuleRanking: VersionV1}, saved.Overrides)
	assert.True(t, saved.ActiveSince.After(current.ActiveSince) || saved.ActiveSince.Equal(current.ActiveSince))

	fetched, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProfileV0Fallback, fetched.ActiveProfile)
	assert.Equal(t, int64(2), fetched.Version)
	assert.Equal(t, VersionV1, fetched.Overrides.Get(ModuleRanking))

	history, err := store.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, event.ID, history[0].ID)
	assert.Equal(t, "alice", history[0].CreatedBy)
	assert.Equal(t, ProfileV1Primary, history[0].PreviousConfig.ActiveProfile)
	assert.Equal(t, ProfileV0Fallback, history[0].NewConfig.ActiveProfile)
}

func TestPostgresStore_StaleVersionConflicts(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	store := NewPostgresStore(infra.PostgresDB)
	ctx := context.Background()

	current, err := store.Fetch(ctx)
	require.NoError(t, err)

	frozen := current.Clone()
	frozen.SafeMode.FreezeUpdates = true
	_, _, err = store.Replace(ctx, ReplaceRequest{ExpectedVersion: current.Version, Config: *frozen, Action: "FREEZE", Actor: "alice"})
	require.NoError(t, err)

	_, _, err = store.Replace(ctx, ReplaceRequest{ExpectedVersion: current.Version, Config: *current, Action: "UNFREEZE", Actor: "bob"})
	assert.True(t, pkgerrors.IsConflict(err))

	history, err := store.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
