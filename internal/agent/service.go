package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/chatprobe/internal/domain"
	"github.com/ashureev/chatprobe/internal/store"
	"github.com/google/uuid"
)

// Service owns per-user conversations and forwards each turn to a Processor.
type Service struct {
	processor Processor
	repo      store.Repository
	now       func() time.Time
	newID     func() string
}

// NewService creates a conversation service.
func NewService(processor Processor, repo store.Repository) *Service {
	return &Service{
		processor: processor,
		repo:      repo,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Initialize resumes the user's open conversation or starts a new one.
// The returned conversation ID is always the service's own, not the processor's.
func (s *Service) Initialize(ctx context.Context, userID string) (*domain.ChatInitResponse, error) {
	existing, err := s.repo.GetOpenConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load open conversation: %w", err)
	}
	if existing != nil {
		step, err := s.processor.ChatStep(ctx, existing.ID, "", existing.State)
		if err != nil {
			return nil, err
		}
		existing.Apply(step.State, step.Done, s.now())
		if err := s.repo.SaveConversation(ctx, existing); err != nil {
			return nil, fmt.Errorf("save resumed conversation: %w", err)
		}
		slog.Info("Resumed conversation", "user_id", userID, "conversation_id", existing.ID)
		return &domain.ChatInitResponse{
			ConversationID: existing.ID,
			Reply:          step.Reply,
			State:          existing.State,
			Done:           step.Done,
		}, nil
	}

	started, err := s.processor.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv := &domain.Conversation{ID: s.newID(), UserID: userID, CreatedAt: now}
	conv.Apply(started.State, started.Done, now)
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save new conversation: %w", err)
	}
	slog.Info("Started conversation", "user_id", userID, "conversation_id", conv.ID)

	return &domain.ChatInitResponse{
		ConversationID: conv.ID,
		Reply:          started.Reply,
		State:          conv.State,
		Done:           started.Done,
	}, nil
}

// Step forwards one user input for a conversation the user owns.
func (s *Service) Step(ctx context.Context, userID, conversationID, userInput string) (*domain.ChatStepResponse, error) {
	if conversationID == "" || userInput == "" {
		return nil, fmt.Errorf("%w: conversation_id and user_input are required", ErrInvalidRequest)
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, fmt.Errorf("%w: invalid conversation_id format", ErrInvalidRequest)
	}

	conv, err := s.Load(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	step, err := s.processor.ChatStep(ctx, conv.ID, userInput, conv.State)
	if err != nil {
		return nil, err
	}

	conv.Apply(step.State, step.Done, s.now())
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	step.State = conv.State
	return step, nil
}

// Load returns a conversation the user owns.
func (s *Service) Load(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// Current returns the user's open conversation.
func (s *Service) Current(ctx context.Context, userID string) (*domain.Conversation, error) {
	conv, err := s.repo.GetOpenConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load open conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrNoActiveConversation
	}
	return conv, nil
}

// Save overwrites the stored state of a conversation the user owns.
// Completion is left as it was.
func (s *Service) Save(ctx context.Context, userID, conversationID string, state domain.ConversationState) error {
	if _, err := uuid.Parse(conversationID); err != nil {
		return fmt.Errorf("%w: invalid conversation_id format", ErrInvalidRequest)
	}
	conv, err := s.Load(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	conv.Apply(state, conv.IsCompleted, s.now())
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// UpdateAnswer sets one answer field on a conversation the user owns.
func (s *Service) UpdateAnswer(ctx context.Context, userID, conversationID, field, answer string) error {
	if conversationID == "" || field == "" {
		return fmt.Errorf("%w: conversation_id and field are required", ErrInvalidRequest)
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return fmt.Errorf("%w: invalid conversation_id format", ErrInvalidRequest)
	}
	conv, err := s.Load(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	state := conv.State.Clone()
	state.Answers[field] = answer
	conv.Apply(state, conv.IsCompleted, s.now())
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation the user owns.
func (s *Service) Delete(ctx context.Context, userID, conversationID string) error {
	deleted, err := s.repo.DeleteConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConversationNotFound
	}
	slog.Info("Deleted conversation", "user_id", userID, "conversation_id", conversationID)
	return nil
}
