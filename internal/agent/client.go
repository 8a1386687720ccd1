package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/chatprobe/internal/domain"
)

// maxErrorBody caps how much of an upstream error body is kept in the error.
const maxErrorBody = 512

// Client provides an HTTP client to the primary chat service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:5000",
		RequestTimeout: 30 * time.Second,
	}
}

// NewClient creates a client for the chat service at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultClientConfig()
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
	}
}

// Initialize calls /initialize.
func (c *Client) Initialize(ctx context.Context) (*domain.ChatInitResponse, error) {
	c.logger.Info("Calling chat service /initialize")

	var resp domain.ChatInitResponse
	if err := c.post(ctx, "/initialize", nil, &resp); err != nil {
		c.logger.Error("Error calling chat service /initialize", "error", err)
		return nil, err
	}
	resp.State.Normalize()

	c.logger.Info("Chat service /initialize parsed", "conversation_id", resp.ConversationID)
	return &resp, nil
}

// ChatStep calls /chat-step with the current state.
func (c *Client) ChatStep(ctx context.Context, conversationID, userInput string, state domain.ConversationState) (*domain.ChatStepResponse, error) {
	state.Normalize()
	c.logger.Info("Calling chat service /chat-step", "conversation_id", conversationID)

	var resp domain.ChatStepResponse
	err := c.post(ctx, "/chat-step", domain.ChatStepRequest{
		ConversationID: conversationID,
		UserInput:      userInput,
		State:          &state,
	}, &resp)
	if err != nil {
		c.logger.Error("Error calling chat service /chat-step", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	resp.State.Normalize()

	c.logger.Info("Chat service /chat-step parsed",
		"conversation_id", conversationID,
		"reply", truncate(resp.Reply, 50),
		"done", resp.Done,
	)
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpstream, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "path", path, "error", closeErr)
		}
	}()

	c.logger.Info("Chat service response", "path", path, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrUpstream, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
