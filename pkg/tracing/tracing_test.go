package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"runtimeops/internal/config"
	"runtimeops/internal/constants"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestStartAndFail(t *testing.T) {
	sr := recordSpans(t)

	_, span := Start(context.Background(), "orchestrator", "orchestrator.action",
		attribute.String("action.id", "a1"),
	)
	Fail(span, errors.New("backing call failed"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "orchestrator.action", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("action.id", "a1"))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "backing call failed", spans[0].Status().Description)
}

func TestFailIgnoresNil(t *testing.T) {
	sr := recordSpans(t)

	_, span := Start(context.Background(), "control", "control.subsystem")
	Fail(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Empty(t, spans[0].Events())
}

func TestInitDisabled(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, constants.ServiceName, ServiceName(config.TracingConfig{}))
	assert.Equal(t, "orchestrator-canary", ServiceName(config.TracingConfig{ServiceName: "orchestrator-canary"}))
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		cfg  config.SamplerConfig
		want string
	}{
		{cfg: config.SamplerConfig{Type: "always_off"}, want: "AlwaysOffSampler"},
		{cfg: config.SamplerConfig{Type: "always_on"}, want: "AlwaysOnSampler"},
		{cfg: config.SamplerConfig{}, want: "AlwaysOnSampler"},
		{cfg: config.SamplerConfig{Type: "traceidratio", Param: 0.5}, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			assert.Equal(t, tt.want, createSampler(tt.cfg).Description())
		})
	}

	assert.Contains(t, createSampler(config.SamplerConfig{Type: "parentbased_always_on"}).Description(), "ParentBased{root:AlwaysOnSampler")
}
