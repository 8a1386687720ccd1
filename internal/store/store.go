// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/chatprobe/internal/domain"
)

// Repository defines the interface for persisting stub backend conversations.
type Repository interface {
	// GetConversation retrieves a conversation owned by userID.
	// Returns nil, nil when no such conversation exists.
	GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)

	// GetOpenConversation retrieves the user's most recent incomplete conversation, if any.
	GetOpenConversation(ctx context.Context, userID string) (*domain.Conversation, error)

	// SaveConversation creates or updates a conversation record.
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// DeleteConversation removes a conversation owned by userID.
	// Returns false when nothing was deleted.
	DeleteConversation(ctx context.Context, userID, conversationID string) (bool, error)

	// DeleteStaleConversations removes conversations not updated within olderThan
	// and returns how many were deleted.
	DeleteStaleConversations(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
