package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/chatprobe/internal/shared"
	"github.com/ashureev/chatprobe/internal/store"
)

// DefaultSweepInterval is how often the TTL worker looks for idle conversations.
const DefaultSweepInterval = 5 * time.Minute

// StartTTLWorker runs a background goroutine that periodically deletes
// conversations idle for longer than ttl. A ttl of zero disables the worker.
func StartTTLWorker(ctx context.Context, repo store.Repository, ttl, interval time.Duration) {
	if ttl <= 0 {
		slog.Info("TTL worker disabled")
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepStaleConversations(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepStaleConversations(ctx context.Context, repo store.Repository, ttl time.Duration) int64 {
	deleted, err := deleteStaleWithRetry(ctx, repo, ttl)
	if err != nil {
		slog.Error("TTL worker failed to delete stale conversations", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("TTL worker cleaned up stale conversations", "count", deleted)
	}
	return deleted
}

// deleteStaleWithRetry backs off on SQLITE_BUSY, which shows up when a
// chat step is saving at the same moment.
func deleteStaleWithRetry(ctx context.Context, repo store.Repository, ttl time.Duration) (int64, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		var deleted int64
		deleted, err = repo.DeleteStaleConversations(ctx, ttl)
		if err == nil {
			return deleted, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("TTL worker: database locked, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	return 0, fmt.Errorf("delete stale conversations after %d attempts: %w", maxRetries, err)
}
