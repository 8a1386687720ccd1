package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// EndpointConfig describes one service the runner talks to.
type EndpointConfig struct {
	Name               string
	BaseURL            string
	Headers            map[string]string // sent on every call
	Timeout            time.Duration     // 0 = wait indefinitely
	InsecureSkipVerify bool
}

// Endpoint issues POSTs beneath a base URL.
type Endpoint struct {
	name    string
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// NewEndpoint builds an endpoint with its own HTTP client.
func NewEndpoint(cfg EndpointConfig, logger *slog.Logger) *Endpoint {
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		//nolint:gosec // The backend runs with a local development certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Endpoint{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		client:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger:  logger.With("endpoint", cfg.Name),
	}
}

// Name returns the endpoint's display name.
func (e *Endpoint) Name() string {
	return e.name
}

// Post sends payload (or no body when nil) to path. When decode is set a
// 200 response must carry valid JSON.
func (e *Endpoint) Post(ctx context.Context, path string, payload any, decode bool) (res Result) {
	res = Result{Endpoint: e.name, Path: path}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	req, err := e.newRequest(ctx, path, payload)
	if err != nil {
		res.Outcome = OutcomeTransport
		res.Err = err
		return res
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("request failed", "path", path, "error", err)
		res.Outcome = OutcomeTransport
		res.Err = err
		return res
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.logger.Debug("failed to close response body", "path", path, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Outcome = OutcomeTransport
		res.Err = fmt.Errorf("read %s response: %w", path, err)
		return res
	}

	res.Record = &Record{Status: resp.StatusCode, Body: string(body)}
	e.logger.Debug("request completed",
		"method", http.MethodPost,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		res.Outcome = OutcomeStatus
		res.Err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		return res
	}

	if decode {
		if !json.Valid(body) {
			res.Outcome = OutcomeDecode
			res.Err = fmt.Errorf("%w: %s", ErrInvalidJSON, truncate(res.Record.Body, 80))
			return res
		}
		// Kept as raw bytes so key order and number precision reach the transcript untouched.
		res.Record.JSON = json.RawMessage(body)
	}

	res.Outcome = OutcomeOK
	return res
}

func (e *Endpoint) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
