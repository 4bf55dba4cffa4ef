package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     contextKey = "trace_id"
	BatchIDKey     contextKey = "batch_id"
	ActionIDKey    contextKey = "action_id"
	OperatorKey    contextKey = "operator"
	ServiceNameKey contextKey = "service_name"
)

// SystemOperator is recorded as the actor when a request carries no operator id.
const SystemOperator = "system"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

func WithActionID(ctx context.Context, actionID string) context.Context {
	return context.WithValue(ctx, ActionIDKey, actionID)
}

func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, OperatorKey, operator)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetBatchID(ctx context.Context) string {
	return stringValue(ctx, BatchIDKey)
}

func GetActionID(ctx context.Context) string {
	return stringValue(ctx, ActionIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

// GetOperator returns the operator recorded on ctx, or SystemOperator.
func GetOperator(ctx context.Context) string {
	if op := stringValue(ctx, OperatorKey); op != "" {
		return op
	}
	return SystemOperator
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []contextKey{TraceIDKey, BatchIDKey, ActionIDKey, OperatorKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}

	return fields
}
