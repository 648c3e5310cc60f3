package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/store"
)

// Factory builds an Assistant for one user tab. restored is nil for new chats.
type Factory func(userID, sessionID string, restored *domain.ChatState) *Assistant

type sessionEntry struct {
	assistant *Assistant
	createdAt time.Time
	lastUsed  time.Time
}

// Sessions keeps one Assistant per (user, session) and persists transcripts
// through the repository.
type Sessions struct {
	repo    store.Repository
	factory Factory
	now     func() time.Time

	mu     sync.Mutex
	active map[string]*sessionEntry
}

// NewSessions creates a registry. repo may be nil for in-memory only use.
func NewSessions(repo store.Repository, factory Factory) *Sessions {
	return &Sessions{
		repo:    repo,
		factory: factory,
		now:     time.Now,
		active:  make(map[string]*sessionEntry),
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Get returns the live assistant for the tab, restoring a persisted chat on
// first use.
func (m *Sessions) Get(ctx context.Context, userID, sessionID string) (*Assistant, error) {
	key := sessionKey(userID, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.active[key]; ok {
		e.lastUsed = m.now()
		return e.assistant, nil
	}

	var (
		restored  *domain.ChatState
		createdAt = m.now()
	)
	if m.repo != nil {
		cs, err := m.repo.GetChatSession(ctx, userID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load chat session: %w", err)
		}
		if cs != nil {
			state, err := decodeSession(cs)
			if err != nil {
				// Start over on a corrupt row.
				slog.Warn("Discarding unreadable chat session",
					"user_id", userID,
					"session_id", sessionID,
					"error", err)
			} else {
				restored = &state
				createdAt = cs.CreatedAt
			}
		}
	}

	a := m.factory(userID, sessionID, restored)
	m.active[key] = &sessionEntry{assistant: a, createdAt: createdAt, lastUsed: m.now()}
	slog.Info("Chat session opened",
		"user_id", userID,
		"session_id", sessionID,
		"restored", restored != nil)
	return a, nil
}

// Persist saves the current state of a live session.
func (m *Sessions) Persist(ctx context.Context, userID, sessionID string) error {
	if m.repo == nil {
		return nil
	}
	m.mu.Lock()
	e, ok := m.active[sessionKey(userID, sessionID)]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.save(ctx, userID, sessionID, e)
}

// PersistAll saves every live session, including ones with subscribers,
// and returns how many were written.
func (m *Sessions) PersistAll(ctx context.Context) (int, error) {
	if m.repo == nil {
		return 0, nil
	}

	m.mu.Lock()
	entries := make(map[string]*sessionEntry, len(m.active))
	for key, e := range m.active {
		entries[key] = e
	}
	m.mu.Unlock()

	var (
		saved int
		errs  []error
	)
	for key, e := range entries {
		userID, sessionID := splitSessionKey(key)
		if err := m.save(ctx, userID, sessionID, e); err != nil {
			errs = append(errs, fmt.Errorf("persist %s: %w", key, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

func (m *Sessions) save(ctx context.Context, userID, sessionID string, e *sessionEntry) error {
	cs, err := encodeSession(userID, sessionID, e.assistant.GetState(), e.createdAt, m.now())
	if err != nil {
		return err
	}
	return m.repo.UpsertChatSession(ctx, cs)
}

// Delete drops the live session and its persisted copy.
func (m *Sessions) Delete(ctx context.Context, userID, sessionID string) error {
	m.mu.Lock()
	delete(m.active, sessionKey(userID, sessionID))
	m.mu.Unlock()
	if m.repo == nil {
		return nil
	}
	return m.repo.DeleteChatSession(ctx, userID, sessionID)
}

// Len returns the number of live sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// EvictIdle persists and unloads sessions unused for longer than ttl.
// Sessions with live subscribers are kept.
func (m *Sessions) EvictIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	type idle struct {
		userID, sessionID string
		entry             *sessionEntry
	}
	var expired []idle

	m.mu.Lock()
	for key, e := range m.active {
		if e.lastUsed.After(cutoff) || e.assistant.Subscribers() > 0 {
			continue
		}
		delete(m.active, key)
		userID, sessionID := splitSessionKey(key)
		expired = append(expired, idle{userID, sessionID, e})
	}
	m.mu.Unlock()

	for _, s := range expired {
		if m.repo == nil {
			continue
		}
		if err := m.save(ctx, s.userID, s.sessionID, s.entry); err != nil {
			slog.Warn("Failed to persist evicted chat session",
				"user_id", s.userID,
				"session_id", s.sessionID,
				"error", err)
		}
	}
	return len(expired)
}

func splitSessionKey(key string) (userID, sessionID string) {
	userID, sessionID, _ = strings.Cut(key, ":")
	return userID, sessionID
}

func encodeSession(userID, sessionID string, s domain.ChatState, createdAt, now time.Time) (*domain.ChatSession, error) {
	stored := make([]domain.StoredMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		stored = append(stored, domain.StoredMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Unix(),
		})
	}
	messages, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	uc, err := json.Marshal(s.Context)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}
	return &domain.ChatSession{
		UserID:         userID,
		SessionID:      sessionID,
		ConversationID: s.ConversationID,
		Category:       s.Category,
		MessagesJSON:   string(messages),
		ContextJSON:    string(uc),
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}, nil
}

func decodeSession(cs *domain.ChatSession) (domain.ChatState, error) {
	var stored []domain.StoredMessage
	if err := json.Unmarshal([]byte(cs.MessagesJSON), &stored); err != nil {
		return domain.ChatState{}, fmt.Errorf("decode messages: %w", err)
	}
	var uc domain.UserContext
	if err := json.Unmarshal([]byte(cs.ContextJSON), &uc); err != nil {
		return domain.ChatState{}, fmt.Errorf("decode context: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, domain.ChatMessage{
			ID:        m.ID,
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			CreatedAt: time.Unix(m.CreatedAt, 0),
		})
	}
	return domain.ChatState{
		ConversationID: cs.ConversationID,
		Messages:       messages,
		Context:        uc,
		Category:       cs.Category,
	}, nil
}
