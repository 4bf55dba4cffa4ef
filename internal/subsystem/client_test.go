package subsystem

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtimeops/internal/config"
	"runtimeops/internal/staging"
	"runtimeops/pkg/circuitbreaker"
	pkgerrors "runtimeops/pkg/errors"
)

func TestHTTPClient_Activate(t *testing.T) {
	var got requestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "alice", r.Header.Get("X-Operator-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient("irt", config.SubsystemConfig{BaseURL: server.URL + "/", Token: "secret"})
	err := client.Activate(context.Background(), Request{
		Identifiers: map[string]string{"run_id": "r1"},
		Reason:      "promote",
		Phrase:      "ACTIVATE IRT",
		Actor:       "alice",
		ApprovalID:  "ap-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.Identifiers["run_id"])
	assert.Equal(t, "ACTIVATE IRT", got.ConfirmationPhrase)
	assert.Equal(t, "ap-1", got.ApprovalID)
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{
			name:   "approval required",
			status: http.StatusConflict,
			body:   `{"error":"needs approval","error_code":"APPROVAL_REQUIRED"}`,
			check:  pkgerrors.IsApprovalRequired,
		},
		{
			name:   "plain conflict",
			status: http.StatusConflict,
			body:   `{"error":"run already active","error_code":"CONFLICT"}`,
			check:  pkgerrors.IsConflict,
		},
		{
			name:   "phrase mismatch",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"bad phrase","error_code":"PHRASE_MISMATCH"}`,
			check:  pkgerrors.IsPhraseMismatch,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
			check: func(err error) bool {
				return pkgerrors.Code(err) == pkgerrors.ErrBackingCallFailed.Code
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/deactivate", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewHTTPClient("rank", config.SubsystemConfig{BaseURL: server.URL}).Deactivate(context.Background(), Request{})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestHTTPClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewHTTPClient("irt", config.SubsystemConfig{BaseURL: url, TimeoutSeconds: 1}).Activate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrBackingCallFailed.Code, pkgerrors.Code(err))
}

func TestHTTPClient_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, NewHTTPClient("irt", config.SubsystemConfig{BaseURL: server.URL}).Check(context.Background()))
}

func TestCircuitBreakerActivator_IgnoresDomainRefusals(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_code":"APPROVAL_REQUIRED"}`))
	}))
	defer server.Close()

	cfg := circuitbreaker.DefaultConfig("irt").WithTuning(circuitbreaker.Tuning{FailureRatio: 0.1, MinRequests: 1, Timeout: time.Minute})
	activator := NewCircuitBreakerActivator(NewHTTPClient("irt", config.SubsystemConfig{BaseURL: server.URL}), "irt", cfg)

	for i := 0; i < 5; i++ {
		err := activator.Activate(context.Background(), Request{})
		assert.True(t, pkgerrors.IsApprovalRequired(err))
	}
	assert.Equal(t, "closed", activator.State())
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestCircuitBreakerActivator_OpensOnServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := circuitbreaker.DefaultConfig("rank").WithTuning(circuitbreaker.Tuning{FailureRatio: 0.5, MinRequests: 2, Timeout: time.Minute})
	activator := NewCircuitBreakerActivator(NewHTTPClient("rank", config.SubsystemConfig{BaseURL: server.URL}), "rank", cfg)

	for i := 0; i < 2; i++ {
		require.Error(t, activator.Activate(context.Background(), Request{}))
	}
	assert.Equal(t, "open", activator.State())

	err := activator.Activate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrBackingCallFailed.Code, pkgerrors.Code(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewRegistryFromConfig(t *testing.T) {
	registry, err := NewRegistryFromConfig(map[string]config.SubsystemConfig{
		"irt":            {BaseURL: "http://irt.local"},
		"graph_revision": {BaseURL: "http://graph.local"},
	}, config.CircuitBreakerConfig{Enabled: true})
	require.NoError(t, err)

	_, err = registry.Get(staging.SubsystemIRT)
	assert.NoError(t, err)
	_, err = registry.Get(staging.SubsystemRank)
	assert.Equal(t, pkgerrors.ErrBackingCallFailed.Code, pkgerrors.Code(err))

	clients := registry.Clients()
	require.Len(t, clients, 2)
	assert.Equal(t, "irt", clients[0].Name())
	assert.Equal(t, "graph_revision", clients[1].Name())

	_, err = NewRegistryFromConfig(map[string]config.SubsystemConfig{"search": {BaseURL: "http://x"}}, config.CircuitBreakerConfig{})
	assert.Error(t, err)
}
