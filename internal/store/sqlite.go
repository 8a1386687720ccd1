package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/chatprobe/internal/domain"
	"github.com/ashureev/chatprobe/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		answers_json TEXT NOT NULL DEFAULT '{}',
		messages_json TEXT NOT NULL DEFAULT '[]',
		question_index INTEGER NOT NULL DEFAULT 0,
		skip INTEGER NOT NULL DEFAULT 0,
		attempt_counter_json TEXT NOT NULL DEFAULT '{}',
		is_completed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		completed_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_open ON conversations(user_id, updated_at) WHERE is_completed = 0;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const conversationColumns = `conversation_id, user_id, answers_json, messages_json,
	question_index, skip, attempt_counter_json, is_completed,
	created_at, completed_at, updated_at`

// GetConversation retrieves a conversation by owner and ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations WHERE user_id = ? AND conversation_id = ?`
	return scanConversation(s.db.QueryRowContext(ctx, query, userID, conversationID))
}

// GetOpenConversation retrieves the newest incomplete conversation for a user.
func (s *SQLiteStore) GetOpenConversation(ctx context.Context, userID string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations WHERE user_id = ? AND is_completed = 0
		ORDER BY updated_at DESC LIMIT 1`
	return scanConversation(s.db.QueryRowContext(ctx, query, userID))
}

func scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	var answersJSON, messagesJSON, attemptsJSON string
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&conv.ID, &conv.UserID, &answersJSON, &messagesJSON,
		&conv.State.QuestionIndex, &conv.State.Skip, &attemptsJSON, &conv.IsCompleted,
		&createdAt, &completedAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	if err := json.Unmarshal([]byte(answersJSON), &conv.State.Answers); err != nil {
		return nil, fmt.Errorf("decode answers for %s: %w", conv.ID, err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &conv.State.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for %s: %w", conv.ID, err)
	}
	if err := json.Unmarshal([]byte(attemptsJSON), &conv.State.AttemptCounter); err != nil {
		return nil, fmt.Errorf("decode attempt counter for %s: %w", conv.ID, err)
	}
	conv.State.Normalize()

	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)
	if completedAt.Valid {
		ts := time.Unix(completedAt.Int64, 0)
		conv.CompletedAt = &ts
	}

	return &conv, nil
}

// SaveConversation creates or updates a conversation.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	state := conv.State
	state.Normalize()

	answersJSON, err := json.Marshal(state.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	messagesJSON, err := json.Marshal(state.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	attemptsJSON, err := json.Marshal(state.AttemptCounter)
	if err != nil {
		return fmt.Errorf("encode attempt counter: %w", err)
	}

	var completedAt interface{}
	if conv.CompletedAt != nil {
		completedAt = conv.CompletedAt.Unix()
	}
	updatedAt := conv.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
	INSERT INTO conversations (` + conversationColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(conversation_id) DO UPDATE SET
		answers_json = excluded.answers_json,
		messages_json = excluded.messages_json,
		question_index = excluded.question_index,
		skip = excluded.skip,
		attempt_counter_json = excluded.attempt_counter_json,
		is_completed = excluded.is_completed,
		completed_at = COALESCE(excluded.completed_at, conversations.completed_at),
		updated_at = excluded.updated_at
	WHERE conversations.user_id = excluded.user_id`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, string(answersJSON), string(messagesJSON),
		state.QuestionIndex, state.Skip, string(attemptsJSON), conv.IsCompleted,
		conv.CreatedAt.Unix(), completedAt, updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation.
// Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, conversationID string) (bool, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		var deleted bool
		deleted, err = s.deleteConversationOnce(ctx, userID, conversationID)
		if err == nil {
			return deleted, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("DeleteConversation hit SQLITE_BUSY, retrying",
			"conversation_id", conversationID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
	}

	return false, fmt.Errorf("delete conversation %s: %w", conversationID, err)
}

func (s *SQLiteStore) deleteConversationOnce(ctx context.Context, userID, conversationID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ? AND conversation_id = ?`,
		userID, conversationID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteStaleConversations removes conversations idle for longer than olderThan.
func (s *SQLiteStore) DeleteStaleConversations(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale conversations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
