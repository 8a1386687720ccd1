package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/chatprobe/internal/agent"
	"github.com/ashureev/chatprobe/internal/domain"
	"github.com/ashureev/chatprobe/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ChatHandler serves the authenticated backend routes under /api/chat.
type ChatHandler struct {
	svc    *agent.Service
	tokens map[string]string
}

// NewChatHandler creates a backend handler. tokens maps bearer tokens to user IDs.
func NewChatHandler(svc *agent.Service, tokens map[string]string) *ChatHandler {
	return &ChatHandler{svc: svc, tokens: tokens}
}

// RegisterRoutes registers the backend chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(identity.Middleware(h.tokens))
		r.Post("/initialize", h.Initialize)
		r.Post("/chat-step", h.ChatStep)
		r.Post("/update-answer", h.UpdateAnswer)
		r.Get("/conversation/current", h.CurrentConversation)
		r.Get("/conversation/current/answers", h.CurrentAnswers)
		r.Get("/conversation/{conversationID}", h.LoadConversation)
		r.Post("/conversation/{conversationID}/save", h.SaveConversation)
		r.Delete("/conversation/{conversationID}", h.DeleteConversation)
	})
}

// Initialize resumes or starts the caller's conversation.
func (h *ChatHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	slog.Info("Initialize chat", "user_id", userID)

	resp, err := h.svc.Initialize(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "user_id", userID)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ChatStep forwards one user turn.
func (h *ChatHandler) ChatStep(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req domain.ChatStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("Chat step", "user_id", userID, "conversation_id", req.ConversationID)

	resp, err := h.svc.Step(r.Context(), userID, req.ConversationID, req.UserInput)
	if err != nil {
		h.writeError(w, err, "user_id", userID, "conversation_id", req.ConversationID)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// LoadConversation returns the stored state of one conversation.
func (h *ChatHandler) LoadConversation(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.svc.Load(r.Context(), userID, conversationID)
	if err != nil {
		h.writeError(w, err, "user_id", userID, "conversation_id", conversationID)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conv.ID,
		"state":           conv.State,
		"done":            conv.IsCompleted,
	})
}

// CurrentConversation returns the caller's open conversation.
func (h *ChatHandler) CurrentConversation(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	conv, err := h.svc.Current(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "user_id", userID)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conv.ID,
		"state":           conv.State,
	})
}

// CurrentAnswers returns only the answers of the caller's open conversation.
func (h *ChatHandler) CurrentAnswers(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	conv, err := h.svc.Current(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "user_id", userID)
		return
	}
	JSON(w, http.StatusOK, conv.State.Answers)
}

// SaveConversation replaces the stored state of one conversation.
func (h *ChatHandler) SaveConversation(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	var req domain.SaveConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.State == nil {
		Error(w, http.StatusBadRequest, "state is required")
		return
	}

	if err := h.svc.Save(r.Context(), userID, conversationID, *req.State); err != nil {
		h.writeError(w, err, "user_id", userID, "conversation_id", conversationID)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Conversation saved successfully"})
}

// UpdateAnswer overwrites one answer in a conversation.
func (h *ChatHandler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req domain.UpdateAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateAnswer(r.Context(), userID, req.ConversationID, req.Field, req.Answer); err != nil {
		h.writeError(w, err, "user_id", userID, "conversation_id", req.ConversationID)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Answer updated successfully"})
}

// DeleteConversation removes one conversation.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.svc.Delete(r.Context(), userID, conversationID); err != nil {
		h.writeError(w, err, "user_id", userID, "conversation_id", conversationID)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

func (h *ChatHandler) writeError(w http.ResponseWriter, err error, attrs ...any) {
	switch {
	case errors.Is(err, agent.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrConversationNotFound), errors.Is(err, agent.ErrNoActiveConversation):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrUpstream):
		slog.Error("Chat service unavailable", append(attrs, "error", err)...)
		Error(w, http.StatusBadGateway, "chat service unavailable")
	default:
		slog.Error("Chat request failed", append(attrs, "error", err)...)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
