package staging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/runtimeconfig"
)

func TestDefaultRiskLevel(t *testing.T) {
	tests := map[ActionType]RiskLevel{
		ActionRuntimeSwitch:           RiskHigh,
		ActionFreeze:                  RiskHigh,
		ActionUnfreeze:                RiskHigh,
		ActionOverridesApply:          RiskMedium,
		ActionIRTActivate:             RiskMedium,
		ActionRankActivate:            RiskMedium,
		ActionGraphRevisionActivate:   RiskMedium,
		ActionIRTDeactivate:           RiskLow,
		ActionRankDeactivate:          RiskLow,
		ActionGraphRevisionDeactivate: RiskLow,
	}
	for at, want := range tests {
		assert.Equal(t, want, DefaultRiskLevel(at), at)
	}
}

func TestRiskClassifier_RulesRaiseLevel(t *testing.T) {
	classifier, err := NewRiskClassifier([]RiskRule{
		{Name: "graph", Expression: `subsystem == "graph_revision"`, Level: RiskHigh},
		{Name: "prod cohort", Expression: `has(payload.cohort_key) && payload.cohort_key.startsWith("prod-")`, Level: RiskHigh},
		{Name: "lowering is ignored", Expression: `action_type == "RUNTIME_SWITCH"`, Level: RiskLow},
	})
	require.NoError(t, err)

	ctx := context.Background()

	level, err := classifier.Classify(ctx, GraphRevisionDeactivatePayload{}, runtimeconfig.ProfileV1Primary)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, level)

	level, err = classifier.Classify(ctx, RankActivatePayload{CohortKey: "prod-eu"}, runtimeconfig.ProfileV1Primary)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, level)

	level, err = classifier.Classify(ctx, RankActivatePayload{CohortKey: "beta"}, runtimeconfig.ProfileV1Primary)
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, level)

	level, err = classifier.Classify(ctx, RuntimeSwitchPayload{Profile: runtimeconfig.ProfileV0Fallback}, runtimeconfig.ProfileV1Primary)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, level)
}

func TestNewRiskClassifier_RejectsBadRules(t *testing.T) {
	_, err := NewRiskClassifier([]RiskRule{{Name: "bad", Expression: `phase +`, Level: RiskHigh}})
	assert.Error(t, err)

	_, err = NewRiskClassifier([]RiskRule{{Name: "not bool", Expression: `phase`, Level: RiskHigh}})
	assert.Error(t, err)

	_, err = NewRiskClassifier([]RiskRule{{Name: "level", Expression: `phase == 1`, Level: "severe"}})
	assert.Error(t, err)
}

func TestStager_UsesClassifier(t *testing.T) {
	classifier, err := NewRiskClassifier([]RiskRule{
		{Name: "irt", Expression: `action_type == "IRT_DEACTIVATE"`, Level: RiskMedium},
	})
	require.NoError(t, err)

	a, err := NewStager(classifier).NewSubsystemAction(context.Background(), runtimeconfig.RuntimeConfig{}, IRTDeactivatePayload{})
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, a.RiskLevel)
}

func TestParseRiskLevel(t *testing.T) {
	level, err := ParseRiskLevel("medium")
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, level)
	assert.True(t, RiskHigh.AtLeast(RiskMedium))
	assert.False(t, RiskLow.AtLeast(RiskMedium))

	_, err = ParseRiskLevel("critical")
	assert.Error(t, err)
}
