package agent

import (
	"context"

	"github.com/ashureev/chatprobe/internal/domain"
)

// Processor defines the conversational API the backend forwards turns to.
// It is implemented by the HTTP client and by the in-process questionnaire.
type Processor interface {
	// Initialize starts a conversation and returns its first question.
	Initialize(ctx context.Context) (*domain.ChatInitResponse, error)

	// ChatStep advances state with one user input.
	ChatStep(ctx context.Context, conversationID, userInput string, state domain.ConversationState) (*domain.ChatStepResponse, error)
}

// Ensure both implementations satisfy Processor.
var (
	_ Processor = (*Client)(nil)
	_ Processor = (*Questionnaire)(nil)
)
