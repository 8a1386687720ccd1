package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/chatprobe/internal/agent"
	"github.com/ashureev/chatprobe/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PrimaryHandler serves the stub chat service the runner probes directly.
type PrimaryHandler struct {
	processor agent.Processor
}

// NewPrimaryHandler creates a handler backed by processor.
func NewPrimaryHandler(processor agent.Processor) *PrimaryHandler {
	return &PrimaryHandler{processor: processor}
}

// RegisterRoutes registers the primary service routes.
func (h *PrimaryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/initialize", h.Initialize)
	r.Post("/chat-step", h.ChatStep)
}

// Initialize starts a conversation. The request body is ignored.
func (h *PrimaryHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	resp, err := h.processor.Initialize(r.Context())
	if err != nil {
		slog.Error("Initialize failed", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ChatStep advances the state sent by the caller.
func (h *PrimaryHandler) ChatStep(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	state := domain.NewConversationState()
	if req.State != nil {
		state = *req.State
	}

	resp, err := h.processor.ChatStep(r.Context(), req.ConversationID, req.UserInput, state)
	if err != nil {
		if errors.Is(err, agent.ErrInvalidRequest) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Chat step failed", "error", err, "conversation_id", req.ConversationID)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}
