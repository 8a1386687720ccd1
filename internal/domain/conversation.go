// Package domain contains core domain types shared by the probe and the stub services.
package domain

import (
	"time"
)

// ChatMessage is a single turn in a conversation transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the multi-turn progress carried between chat steps.
type ConversationState struct {
	Answers        map[string]string `json:"answers"`
	Messages       []ChatMessage     `json:"messages"`
	QuestionIndex  int               `json:"question_index"`
	Skip           int               `json:"skip"`
	AttemptCounter map[string]int    `json:"attempt_counter"`
}

// NewConversationState returns an empty state whose collections encode as {} and [].
func NewConversationState() ConversationState {
	return ConversationState{
		Answers:        map[string]string{},
		Messages:       []ChatMessage{},
		AttemptCounter: map[string]int{},
	}
}

// Normalize replaces nil collections so the state never encodes null.
func (s *ConversationState) Normalize() {
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if s.Messages == nil {
		s.Messages = []ChatMessage{}
	}
	if s.AttemptCounter == nil {
		s.AttemptCounter = map[string]int{}
	}
}

// Clone returns a deep copy that shares no collections with s.
func (s ConversationState) Clone() ConversationState {
	out := ConversationState{
		Answers:        make(map[string]string, len(s.Answers)),
		Messages:       make([]ChatMessage, len(s.Messages)),
		QuestionIndex:  s.QuestionIndex,
		Skip:           s.Skip,
		AttemptCounter: make(map[string]int, len(s.AttemptCounter)),
	}
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	copy(out.Messages, s.Messages)
	for k, v := range s.AttemptCounter {
		out.AttemptCounter[k] = v
	}
	return out
}

// Conversation is a persisted conversation owned by one user.
type Conversation struct {
	ID          string
	UserID      string
	State       ConversationState
	IsCompleted bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Apply stores a new state and marks the conversation finished when done is set.
func (c *Conversation) Apply(state ConversationState, done bool, now time.Time) {
	state.Normalize()
	c.State = state
	c.UpdatedAt = now
	if done && !c.IsCompleted {
		c.IsCompleted = true
		c.CompletedAt = &now
	}
}
