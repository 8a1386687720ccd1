// Package agent implements the stub conversational agent, the HTTP client
// used to reach it, and the conversation service the stub backend runs.
package agent

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrConversationNotFound is returned when a conversation does not exist for the user.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrNoActiveConversation is returned when the user has no incomplete conversation.
	ErrNoActiveConversation = errors.New("no active conversation found")
	// ErrUpstream wraps failures talking to the primary service.
	ErrUpstream = errors.New("chat service request failed")
	// ErrInvalidRequest marks malformed chat-step input.
	ErrInvalidRequest = errors.New("invalid chat request")
)

// Question is one questionnaire prompt.
type Question struct {
	Field  string
	Prompt string
	// Validate returns false for answers that should be asked again. Nil accepts anything.
	Validate func(answer string) bool
}

// DefaultQuestions is the questionnaire the stub primary walks through.
func DefaultQuestions() []Question {
	return []Question{
		{Field: "full_name", Prompt: "What is your full name?", Validate: notBlank},
		{Field: "citizenship", Prompt: "What is your country of citizenship?", Validate: notBlank},
		{Field: "date_of_birth", Prompt: "What is your date of birth (YYYY-MM-DD)?", Validate: isDate},
		{Field: "email", Prompt: "What email address can we reach you at?", Validate: isEmail},
	}
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	return err == nil
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Name == ""
}
