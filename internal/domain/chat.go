package domain

import (
	"slices"
	"time"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one immutable transcript entry.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatState is the state of a single conversation.
type ChatState struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
	Context        UserContext   `json:"context"`
	Category       string        `json:"category,omitempty"`
	Loading        bool          `json:"loading"`
	Error          string        `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to subscribers.
func (s ChatState) Clone() ChatState {
	out := s
	out.Messages = slices.Clone(s.Messages)
	if out.Messages == nil {
		out.Messages = []ChatMessage{}
	}
	out.Context = s.Context.Clone()
	return out
}

// LastMessage returns the newest transcript entry.
func (s ChatState) LastMessage() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
