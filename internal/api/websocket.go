package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/identity"
)

// WebSocketHandler pushes chat state to the browser and accepts commands.
type WebSocketHandler struct {
	*Handler
	allowedOrigin string
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{Handler: base, allowedOrigin: allowedOrigin}
}

// wsMessage is an inbound command.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsEvent is an outbound frame.
type wsEvent struct {
	Type  string            `json:"type"`
	State *domain.ChatState `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	a, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		slog.Error("Failed to load chat session", "error", err, "user_id", userID)
		http.Error(w, "failed to load chat", http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Holds at most the newest undelivered snapshot.
	updates := make(chan domain.ChatState, 1)
	unsubscribe := a.Subscribe(func(s domain.ChatState) {
		select {
		case updates <- s:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	initial := a.GetState()
	if err := h.writeJSON(ctx, ws, wsEvent{Type: "state", State: &initial}); err != nil {
		slog.Debug("Failed to send initial state", "error", err, "user_id", userID)
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, updates, userID)
	}()

	h.inputLoop(ctx, ws, a, userID, sessionID)
	cancel()
	wg.Wait()
	slog.Info("Chat WebSocket ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, a *chat.Assistant, userID, sessionID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "error", Error: "invalid message"}); err != nil {
				slog.Debug("Failed to send error", "error", err)
			}
			continue
		}

		switch msg.Type {
		case "send":
			a.SendMessage(ctx, msg.Content, userID)
		case "init":
			a.InitializeChat()
		case "clear":
			a.ClearMessages()
		case "clear_error":
			a.ClearError()
		case "ping":
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
			continue
		default:
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "error", Error: "unknown message type"}); err != nil {
				slog.Debug("Failed to send error", "error", err)
			}
			continue
		}

		if err := h.sessions.Persist(ctx, userID, sessionID); err != nil {
			slog.Warn("Failed to persist chat session", "error", err, "user_id", userID, "session_id", sessionID)
		}

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, updates <-chan domain.ChatState, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "state", State: &s}); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
