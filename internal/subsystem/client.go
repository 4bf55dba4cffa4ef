// Package subsystem calls the activation endpoints of shadow subsystems.
package subsystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"runtimeops/internal/config"
	"runtimeops/internal/constants"
	pkgerrors "runtimeops/pkg/errors"
	"runtimeops/pkg/logging"
	"runtimeops/pkg/metrics"
	"runtimeops/pkg/tracing"
)

type Request struct {
	Identifiers map[string]string
	Reason      string
	Phrase      string
	Actor       string
	ApprovalID  string
}

type Activator interface {
	Activate(ctx context.Context, req Request) error
	Deactivate(ctx context.Context, req Request) error
}

type requestBody struct {
	Identifiers        map[string]string `json:"identifiers"`
	Reason             string            `json:"reason"`
	ConfirmationPhrase string            `json:"confirmation_phrase"`
	Actor              string            `json:"actor"`
	ApprovalID         string            `json:"approval_id,omitempty"`
}

type errorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

type HTTPClient struct {
	name    string
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(name string, cfg config.SubsystemConfig) *HTTPClient {
	timeout := constants.DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &HTTPClient{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Name() string {
	return c.name
}

func (c *HTTPClient) Activate(ctx context.Context, req Request) error {
	return c.post(ctx, "activate", req)
}

func (c *HTTPClient) Deactivate(ctx context.Context, req Request) error {
	return c.post(ctx, "deactivate", req)
}

func (c *HTTPClient) post(ctx context.Context, operation string, req Request) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveSubsystemCall(c.name, operation, err, time.Since(start)) }()

	identifiers := req.Identifiers
	if identifiers == nil {
		identifiers = map[string]string{}
	}
	body, err := json.Marshal(requestBody{
		Identifiers:        identifiers,
		Reason:             req.Reason,
		ConfirmationPhrase: req.Phrase,
		Actor:              req.Actor,
		ApprovalID:         req.ApprovalID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+operation, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(constants.HeaderOperatorID, req.Actor)
	if traceID := logging.GetTraceID(ctx); traceID != "" {
		httpReq.Header.Set(constants.HeaderRequestID, traceID)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	tracing.InjectHTTP(ctx, httpReq.Header)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return pkgerrors.ErrBackingCallFailed.WithCause(err).
			WithMessage(fmt.Sprintf("%s %s request failed", c.name, operation))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return c.decodeError(resp, operation)
}

func (c *HTTPClient) decodeError(resp *http.Response, operation string) error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	message := body.Error
	if message == "" {
		message = fmt.Sprintf("%s %s returned status %d", c.name, operation, resp.StatusCode)
	}

	switch {
	case body.ErrorCode == pkgerrors.ErrApprovalRequired.Code:
		return pkgerrors.ErrApprovalRequired.WithMessage(message).WithDetail("subsystem", c.name)
	case body.ErrorCode == pkgerrors.ErrPhraseMismatch.Code:
		return pkgerrors.ErrPhraseMismatch.WithMessage(message).WithDetail("subsystem", c.name)
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.ErrConflict.WithMessage(message).WithDetail("subsystem", c.name)
	default:
		return pkgerrors.ErrBackingCallFailed.WithMessage(message).
			WithDetail("subsystem", c.name).
			WithDetail("status", resp.StatusCode)
	}
}

// Check probes {base}/health for the health registry.
func (c *HTTPClient) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s health check failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return fmt.Errorf("%s health check returned status: %d", c.name, resp.StatusCode)
	}
	return nil
}
