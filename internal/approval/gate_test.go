package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
)

func TestGate_CheckLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	gate := NewGate(svc)
	ctx := context.Background()
	action := switchAction(runtimeconfig.ProfileV1Primary)

	decision, err := gate.Check(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, DecisionRequiresNew, decision.Kind)
	assert.Empty(t, decision.RequestID)

	escalated, err := gate.Escalate(ctx, action, "cut over", "alice")
	require.NoError(t, err)
	assert.Equal(t, DecisionPending, escalated.Kind)
	require.NotEmpty(t, escalated.RequestID)

	decision, err = gate.Check(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: DecisionPending, RequestID: escalated.RequestID}, decision)

	again, err := gate.Escalate(ctx, action, "cut over", "alice")
	require.NoError(t, err)
	assert.Equal(t, escalated.RequestID, again.RequestID)

	_, err = svc.Approve(ctx, escalated.RequestID, "bob", "")
	require.NoError(t, err)

	decision, err = gate.Check(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: DecisionApproved, RequestID: escalated.RequestID}, decision)
}

func TestGate_KeyUsesPhraseForActionType(t *testing.T) {
	svc, _, _ := newTestService()
	gate := NewGate(svc)
	ctx := context.Background()

	action := switchAction(runtimeconfig.ProfileV1Primary)
	escalated, err := gate.Escalate(ctx, action, "", "alice")
	require.NoError(t, err)

	spoofed := action
	spoofed.RequiredPhrase = "ok"
	key, err := KeyFor(spoofed)
	require.NoError(t, err)
	assert.Equal(t, "SWITCH RUNTIME", key.Phrase)

	decision, err := gate.Check(ctx, spoofed)
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: DecisionPending, RequestID: escalated.RequestID}, decision)
}

func TestGate_DifferentPayloadsDoNotShareApprovals(t *testing.T) {
	svc, _, _ := newTestService()
	gate := NewGate(svc)
	ctx := context.Background()

	irt := staging.StagedAction{ID: "1", Payload: staging.IRTActivatePayload{RunID: "r1"}, RequiredPhrase: "ACTIVATE IRT"}
	_, err := gate.Escalate(ctx, irt, "", "alice")
	require.NoError(t, err)

	other := irt
	other.Payload = staging.IRTActivatePayload{RunID: "r2"}
	decision, err := gate.Check(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, DecisionRequiresNew, decision.Kind)
}

func TestDecisionKindString(t *testing.T) {
	assert.Equal(t, "approved", DecisionApproved.String())
	assert.Equal(t, "pending_approval", DecisionPending.String())
	assert.Equal(t, "requires_new_approval", DecisionRequiresNew.String())
}
