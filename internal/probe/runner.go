// Package probe drives the fixed diagnostic checklist against the primary
// chat service and the authenticated backend in front of it.
package probe

import (
	"context"
	"io"
	"log/slog"

	"github.com/ashureev/chatprobe/internal/config"
	"github.com/ashureev/chatprobe/internal/domain"
)

// Service paths.
const (
	PathInitialize        = "/initialize"
	PathChatStep          = "/chat-step"
	PathBackendInitialize = "/api/chat/initialize"
	PathBackendChatStep   = "/api/chat/chat-step"
)

// Runner executes PrimaryProbe -> DependentProbe -> Done, skipping the
// dependent probe when the primary one fails.
type Runner struct {
	primary        *Endpoint
	dependent      *Endpoint
	out            *Transcript
	conversationID string
	userInput      string
	logger         *slog.Logger
}

// New builds a runner from configuration, writing its transcript to w.
func New(cfg *config.Config, w io.Writer, colored bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	primary := NewEndpoint(EndpointConfig{
		Name:    "primary",
		BaseURL: cfg.PrimaryURL,
		Timeout: cfg.Timeout,
	}, logger)

	dependent := NewEndpoint(EndpointConfig{
		Name:               "backend",
		BaseURL:            cfg.BackendURL,
		Headers:            map[string]string{"Authorization": "Bearer " + cfg.BearerToken},
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: true,
	}, logger)

	return &Runner{
		primary:        primary,
		dependent:      dependent,
		out:            NewTranscript(w, colored),
		conversationID: cfg.ConversationID,
		userInput:      cfg.UserInput,
		logger:         logger,
	}
}

// Run prints the full transcript and returns what happened.
func (r *Runner) Run(ctx context.Context) Summary {
	r.out.Printf("Starting debug flow test...")

	var summary Summary
	summary.Primary = r.ProbePrimary(ctx)
	if !summary.Primary.OK() {
		r.out.Failure("Python API has issues")
		r.logger.Warn("primary probe failed",
			"path", summary.Primary.Path,
			"outcome", summary.Primary.Outcome,
			"status", summary.Primary.Status(),
			"error", summary.Primary.Err,
		)
		return summary
	}
	r.out.Success("Python API is working correctly")

	summary.Dependent = r.ProbeDependent(ctx)
	summary.DependentRan = true

	r.out.Heading("Test Complete", true)
	r.out.Printf("Check the backend logs for detailed information about what's happening.")
	r.out.Printf("The backend should be running with detailed logging enabled.")
	return summary
}

// ProbePrimary calls /initialize and, when that succeeds, /chat-step with an
// empty state. The returned result is the first failing call, or the
// chat-step result when both succeed.
func (r *Runner) ProbePrimary(ctx context.Context) Result {
	r.out.Heading("Testing Python API Directly", false)

	initRes := r.primary.Post(ctx, PathInitialize, nil, true)
	if !r.reportPrimary(initRes, "/initialize", "Python API response", "Python API error") {
		return initRes
	}

	state := domain.NewConversationState()
	step := r.primary.Post(ctx, PathChatStep, domain.ChatStepRequest{
		ConversationID: r.conversationID,
		UserInput:      r.userInput,
		State:          &state,
	}, true)
	r.reportPrimary(step, "/chat-step", "Python API chat-step response", "Python API chat-step error")
	return step
}

func (r *Runner) reportPrimary(res Result, path, okLabel, errLabel string) bool {
	if res.Outcome == OutcomeTransport {
		r.out.Printf("Python API test failed: %v", res.Err)
		return false
	}

	r.out.Printf("Python API %s status: %d", path, res.Status())
	switch res.Outcome {
	case OutcomeOK:
		r.out.JSON(okLabel, res.Record.JSON)
		return true
	case OutcomeDecode:
		r.out.Printf("Python API test failed: %v", res.Err)
	default:
		r.out.Printf("%s: %s", errLabel, res.Record.Body)
	}
	return false
}

// ProbeDependent calls the backend's initialize and chat-step routes with the
// configured bearer token. Responses are informational; a transport failure
// on the first call skips the second.
func (r *Runner) ProbeDependent(ctx context.Context) []Result {
	r.out.Heading("Testing Backend Flow", true)

	calls := []struct {
		path    string
		payload any
	}{
		{PathBackendInitialize, nil},
		{PathBackendChatStep, domain.ChatStepRequest{
			ConversationID: r.conversationID,
			UserInput:      r.userInput,
		}},
	}

	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		res := r.dependent.Post(ctx, call.path, call.payload, false)
		results = append(results, res)
		if res.Outcome == OutcomeTransport {
			r.out.Printf("Backend test failed: %v", res.Err)
			break
		}
		r.out.Printf("Backend %s status: %d", call.path, res.Status())
		r.out.Printf("Backend response: %s", res.Record.Body)
	}
	return results
}
