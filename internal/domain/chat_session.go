package domain

import (
	"time"
)

// ChatSession is the persisted form of a ChatState for one user tab.
type ChatSession struct {
	UserID         string
	SessionID      string
	ConversationID string
	Category       string
	MessagesJSON   string
	ContextJSON    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StoredMessage is a serialized chat message entry.
type StoredMessage struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}
