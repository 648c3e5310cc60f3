package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/pickleai/internal/store"
)

const (
	ttlWorkerInterval = 5 * time.Minute
	// persistedSessionTTL bounds how long unloaded chats stay in the database.
	persistedSessionTTL = 7 * 24 * time.Hour
)

// RunTTLWorker periodically unloads idle sessions and prunes old persisted
// chats. It blocks until ctx is done.
func RunTTLWorker(ctx context.Context, sessions *Sessions, repo store.Repository, ttl time.Duration) error {
	ticker := time.NewTicker(ttlWorkerInterval)
	defer ticker.Stop()
	slog.Info("TTL worker started", "interval", ttlWorkerInterval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			cleanupExpiredSessions(ctx, sessions, repo, ttl)
		case <-ctx.Done():
			slog.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func cleanupExpiredSessions(ctx context.Context, sessions *Sessions, repo store.Repository, ttl time.Duration) {
	if n := sessions.EvictIdle(ctx, ttl); n > 0 {
		slog.Info("TTL worker unloaded idle chat sessions", "count", n, "active", sessions.Len())
	}

	if repo == nil {
		return
	}
	if deleted, err := repo.CleanupExpiredChatSessions(ctx, persistedSessionTTL); err != nil {
		slog.Error("TTL worker failed to cleanup expired chat sessions", "error", err)
	} else if deleted > 0 {
		slog.Info("TTL worker cleaned up expired chat sessions", "count", deleted)
	}
}
