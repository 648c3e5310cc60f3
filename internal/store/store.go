// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/pickleai/internal/domain"
)

// Repository defines the interface for persisting users and chat sessions.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetChatSession retrieves the persisted chat for one user tab.
	// It returns nil, nil when nothing was saved.
	GetChatSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)

	// UpsertChatSession creates or replaces a persisted chat.
	UpsertChatSession(ctx context.Context, session *domain.ChatSession) error

	// DeleteChatSession removes a persisted chat.
	DeleteChatSession(ctx context.Context, userID, sessionID string) error

	// CleanupExpiredChatSessions removes chats not updated within ttl.
	CleanupExpiredChatSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
