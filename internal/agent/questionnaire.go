package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/chatprobe/internal/domain"
	"github.com/google/uuid"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	defaultMaxAttempts = 3
	closingReply       = "Thank you, that's everything I need."
)

// Questionnaire is the in-process stand-in for the Python chat service.
// It is stateless: all progress travels in ConversationState.
type Questionnaire struct {
	questions   []Question
	maxAttempts int
	newID       func() string
}

// NewQuestionnaire creates a questionnaire over questions.
func NewQuestionnaire(questions []Question) *Questionnaire {
	return &Questionnaire{
		questions:   questions,
		maxAttempts: defaultMaxAttempts,
		newID:       uuid.NewString,
	}
}

// Initialize returns a fresh state with the first question asked.
func (q *Questionnaire) Initialize(_ context.Context) (*domain.ChatInitResponse, error) {
	state := domain.NewConversationState()
	reply := closingReply
	if len(q.questions) > 0 {
		reply = "Hello! " + q.questions[0].Prompt
	}
	state.Messages = append(state.Messages, domain.ChatMessage{Role: roleAssistant, Content: reply})

	return &domain.ChatInitResponse{
		ConversationID: q.newID(),
		Reply:          reply,
		State:          state,
		Done:           len(q.questions) == 0,
	}, nil
}

// ChatStep records one answer. Empty input re-asks the current question
// without touching state; invalid answers count toward the attempt limit,
// after which the question is skipped.
func (q *Questionnaire) ChatStep(_ context.Context, conversationID, userInput string, current domain.ConversationState) (*domain.ChatStepResponse, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", ErrInvalidRequest)
	}

	current.Normalize()
	state := current.Clone()
	if state.QuestionIndex < 0 {
		return nil, fmt.Errorf("%w: question_index %d", ErrInvalidRequest, state.QuestionIndex)
	}
	if state.QuestionIndex >= len(q.questions) {
		return &domain.ChatStepResponse{Reply: closingReply, State: state, Done: true}, nil
	}

	question := q.questions[state.QuestionIndex]
	input := strings.TrimSpace(userInput)
	if input == "" {
		return &domain.ChatStepResponse{Reply: question.Prompt, State: state}, nil
	}

	state.Messages = append(state.Messages, domain.ChatMessage{Role: roleUser, Content: input})

	var reply string
	switch {
	case question.Validate == nil || question.Validate(input):
		state.Answers[question.Field] = input
		reply = q.advance(&state, "")
	default:
		state.AttemptCounter[question.Field]++
		if state.AttemptCounter[question.Field] >= q.maxAttempts {
			state.Skip++
			reply = q.advance(&state, "Let's move on. ")
		} else {
			reply = "Sorry, that doesn't look right. " + question.Prompt
		}
	}

	state.Messages = append(state.Messages, domain.ChatMessage{Role: roleAssistant, Content: reply})
	return &domain.ChatStepResponse{
		Reply: reply,
		State: state,
		Done:  state.QuestionIndex >= len(q.questions),
	}, nil
}

func (q *Questionnaire) advance(state *domain.ConversationState, prefix string) string {
	state.QuestionIndex++
	if state.QuestionIndex >= len(q.questions) {
		return prefix + closingReply
	}
	return prefix + q.questions[state.QuestionIndex].Prompt
}
