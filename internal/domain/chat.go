package domain

// ChatStepRequest is the body of a chat-step call. The primary service
// expects State; the backend loads it from storage and the field is omitted.
type ChatStepRequest struct {
	ConversationID string             `json:"conversation_id"`
	UserInput      string             `json:"user_input"`
	State          *ConversationState `json:"state,omitempty"`
}

// ChatInitResponse is returned by both initialize routes.
type ChatInitResponse struct {
	ConversationID string            `json:"conversation_id"`
	Reply          string            `json:"reply"`
	State          ConversationState `json:"state"`
	Done           bool              `json:"done"`
}

// ChatStepResponse is returned by both chat-step routes.
type ChatStepResponse struct {
	Reply string            `json:"reply"`
	State ConversationState `json:"state"`
	Done  bool              `json:"done"`
}

// SaveConversationRequest replaces a conversation's stored state.
type SaveConversationRequest struct {
	State *ConversationState `json:"state"`
}

// UpdateAnswerRequest overwrites a single answer.
type UpdateAnswerRequest struct {
	ConversationID string `json:"conversation_id"`
	Field          string `json:"field"`
	Answer         string `json:"answer"`
}
