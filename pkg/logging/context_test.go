package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "t-1")
	ctx = WithBatchID(ctx, "b-1")
	ctx = WithOperator(ctx, "alice")

	assert.Equal(t, []interface{}{"trace_id", "t-1", "batch_id", "b-1", "operator", "alice"}, GetLogFields(ctx))
}

func TestGetOperatorDefaultsToSystem(t *testing.T) {
	assert.Equal(t, SystemOperator, GetOperator(context.Background()))
	assert.Equal(t, "bob", GetOperator(WithOperator(context.Background(), "bob")))
}
