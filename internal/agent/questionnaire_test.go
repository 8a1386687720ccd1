package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/chatprobe/internal/domain"
)

func testQuestionnaire() *Questionnaire {
	q := NewQuestionnaire(DefaultQuestions())
	q.newID = func() string { return "conv-1" }
	return q
}

func TestQuestionnaireInitialize(t *testing.T) {
	t.Parallel()

	resp, err := testQuestionnaire().Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if resp.ConversationID != "conv-1" {
		t.Errorf("Expected conv-1, got %q", resp.ConversationID)
	}
	if !strings.Contains(resp.Reply, "full name") {
		t.Errorf("Expected first question, got %q", resp.Reply)
	}
	if resp.Done {
		t.Error("Expected not done")
	}
	if len(resp.State.Messages) != 1 || resp.State.Messages[0].Role != roleAssistant {
		t.Errorf("Expected one assistant message, got %+v", resp.State.Messages)
	}
}

func TestQuestionnaireWalksAllQuestions(t *testing.T) {
	t.Parallel()

	q := testQuestionnaire()
	ctx := context.Background()
	state := domain.NewConversationState()

	answers := []string{"Ada Lovelace", "United Kingdom", "1815-12-10", "ada@example.com"}
	var last *domain.ChatStepResponse
	for i, a := range answers {
		resp, err := q.ChatStep(ctx, "conv-1", a, state)
		if err != nil {
			t.Fatalf("ChatStep %d failed: %v", i, err)
		}
		state = resp.State
		last = resp
		if resp.Done != (i == len(answers)-1) {
			t.Fatalf("Unexpected done=%v after answer %d", resp.Done, i)
		}
	}

	if last.Reply != closingReply {
		t.Errorf("Expected closing reply, got %q", last.Reply)
	}
	if state.Answers["email"] != "ada@example.com" || len(state.Answers) != 4 {
		t.Errorf("Unexpected answers %v", state.Answers)
	}
	if len(state.Messages) != 8 {
		t.Errorf("Expected 8 messages, got %d", len(state.Messages))
	}

	again, err := q.ChatStep(ctx, "conv-1", "anything", state)
	if err != nil || !again.Done {
		t.Fatalf("Expected finished conversation to stay done, got %+v, %v", again, err)
	}
}

func TestQuestionnaireEmptyInputReasks(t *testing.T) {
	t.Parallel()

	state := domain.NewConversationState()
	state.QuestionIndex = 1
	resp, err := testQuestionnaire().ChatStep(context.Background(), "conv-1", "   ", state)
	if err != nil {
		t.Fatalf("ChatStep failed: %v", err)
	}
	if resp.Reply != DefaultQuestions()[1].Prompt {
		t.Errorf("Expected citizenship prompt, got %q", resp.Reply)
	}
	if resp.State.QuestionIndex != 1 || len(resp.State.Messages) != 0 {
		t.Errorf("State should be unchanged, got %+v", resp.State)
	}
}

func TestQuestionnaireSkipsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	q := testQuestionnaire()
	state := domain.NewConversationState()
	state.QuestionIndex = 2 // date of birth

	for i := 1; i <= defaultMaxAttempts; i++ {
		resp, err := q.ChatStep(context.Background(), "conv-1", "yesterday", state)
		if err != nil {
			t.Fatalf("ChatStep failed: %v", err)
		}
		state = resp.State
		if state.AttemptCounter["date_of_birth"] != i {
			t.Fatalf("Expected %d attempts, got %d", i, state.AttemptCounter["date_of_birth"])
		}
	}

	if state.Skip != 1 || state.QuestionIndex != 3 {
		t.Fatalf("Expected skip to next question, got %+v", state)
	}
	if _, ok := state.Answers["date_of_birth"]; ok {
		t.Error("Skipped question must not store an answer")
	}
}

func TestQuestionnaireDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	state := domain.NewConversationState()
	if _, err := testQuestionnaire().ChatStep(context.Background(), "conv-1", "Ada", state); err != nil {
		t.Fatalf("ChatStep failed: %v", err)
	}
	if len(state.Answers) != 0 || len(state.Messages) != 0 {
		t.Fatalf("Input state mutated: %+v", state)
	}
}

func TestQuestionnaireRejectsBadRequests(t *testing.T) {
	t.Parallel()

	q := testQuestionnaire()
	if _, err := q.ChatStep(context.Background(), "", "x", domain.NewConversationState()); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest for missing id, got %v", err)
	}
	bad := domain.NewConversationState()
	bad.QuestionIndex = -1
	if _, err := q.ChatStep(context.Background(), "c", "x", bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest for negative index, got %v", err)
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"blank", notBlank, "  ", false},
		{"date ok", isDate, "2000-01-31", true},
		{"date bad", isDate, "31/01/2000", false},
		{"email ok", isEmail, "a@b.io", true},
		{"email named", isEmail, "Ada <a@b.io>", false},
		{"email bad", isEmail, "nope", false},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
