package staging

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/runtimeconfig"
)

func TestCanonicalPayload_SortsKeys(t *testing.T) {
	data, err := CanonicalPayload(RuntimeSwitchPayload{
		Profile: runtimeconfig.ProfileV1Primary,
		Overrides: runtimeconfig.Overrides{
			runtimeconfig.ModuleRanking:       runtimeconfig.VersionV0,
			runtimeconfig.ModuleItemSelection: runtimeconfig.VersionV1,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overrides":{"item_selection":"v1","ranking":"v0"},"profile":"V1_PRIMARY"}`, string(data))
}

func TestPayloadHash_DistinguishesPayloads(t *testing.T) {
	a, err := PayloadHash(IRTActivatePayload{RunID: "r1"})
	require.NoError(t, err)
	b, err := PayloadHash(IRTActivatePayload{RunID: "r2"})
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestPayloadHash_Properties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("hash is independent of override insertion order", prop.ForAll(
		func(profile runtimeconfig.Profile, overrides runtimeconfig.Overrides) bool {
			reordered := runtimeconfig.Overrides{}
			modules := overrides.SortedModules()
			for i := len(modules) - 1; i >= 0; i-- {
				reordered[modules[i]] = overrides[modules[i]]
			}

			h1, err1 := PayloadHash(OverridesApplyPayload{Profile: profile, Overrides: overrides})
			h2, err2 := PayloadHash(OverridesApplyPayload{Profile: profile, Overrides: reordered})
			return err1 == nil && err2 == nil && h1 == h2
		},
		genProfile(), genOverrides(),
	))

	properties.TestingRun(t)
}
