package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/identity"
	"github.com/ashureev/pickleai/internal/security"
)

// sendLocks rejects overlapping sends for the same chat tab.
var sendLocks sync.Map

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	*Handler
	planner   *chat.Planner
	limits    security.Config
	aiEnabled bool
}

// NewChatHandler creates a chat handler.
func NewChatHandler(base *Handler, planner *chat.Planner, limits security.Config, aiEnabled bool) *ChatHandler {
	return &ChatHandler{Handler: base, planner: planner, limits: limits, aiEnabled: aiEnabled}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Post("/analyze", h.Analyze)
		r.Route("/chat", func(r chi.Router) {
			r.Post("/init", h.Init)
			r.Get("/state", h.GetState)
			r.Post("/messages", h.SendMessage)
			r.Post("/clear", h.Clear)
			r.Delete("/error", h.ClearError)
			r.Patch("/context", h.UpdateContext)
		})
	})
}

// GetMe returns the current user's information.
func (h *ChatHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"username":   user.Username,
		"session_id": identity.SessionIDFromContext(r.Context()),
	})
}

type categoryInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// GetConfig returns the server configuration for the frontend.
func (h *ChatHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cats := h.planner.Registry().Categories()
	infos := make([]categoryInfo, 0, len(cats))
	for _, c := range cats {
		infos = append(infos, categoryInfo{Name: c.Name, DisplayName: c.Title()})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled": h.aiEnabled,
		"rate_limit": map[string]interface{}{
			"per_minute":       h.limits.PerMinute,
			"per_day":          h.limits.PerDay,
			"cooldown_seconds": int64(h.limits.Cooldown.Seconds()),
		},
		"categories": infos,
	})
}

// assistant resolves the caller's chat tab.
func (h *ChatHandler) assistant(w http.ResponseWriter, r *http.Request) (*chat.Assistant, bool) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	a, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		slog.Error("Failed to load chat session", "error", err, "user_id", userID, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to load chat")
		return nil, false
	}
	return a, true
}

// persist saves the tab after a mutation. Failures are logged only; the
// in-memory state stays authoritative.
func (h *ChatHandler) persist(r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if err := h.sessions.Persist(r.Context(), userID, sessionID); err != nil {
		slog.Warn("Failed to persist chat session", "error", err, "user_id", userID, "session_id", sessionID)
	}
}

// Init seeds the welcome message.
func (h *ChatHandler) Init(w http.ResponseWriter, r *http.Request) {
	a, ok := h.assistant(w, r)
	if !ok {
		return
	}
	a.InitializeChat()
	h.persist(r)
	JSON(w, http.StatusOK, a.GetState())
}

// GetState returns the current chat state.
func (h *ChatHandler) GetState(w http.ResponseWriter, r *http.Request) {
	a, ok := h.assistant(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, a.GetState())
}

type sendRequest struct {
	Content string `json:"content"`
}

// SendMessage runs one conversation turn.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		Error(w, http.StatusBadRequest, "content is required")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	lock, _ := sendLocks.LoadOrStore(userID+":"+sessionID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		slog.Warn("Chat send already in progress", "user_id", userID, "session_id", sessionID)
		Error(w, http.StatusConflict, "message_in_progress")
		return
	}
	defer func() {
		mutex.Unlock()
		sendLocks.Delete(userID + ":" + sessionID)
	}()

	a, ok := h.assistant(w, r)
	if !ok {
		return
	}

	slog.Info("Chat message received",
		"user_id", userID,
		"session_id", sessionID,
		"message_length", len(req.Content))

	state := a.SendMessage(r.Context(), req.Content, userID)
	h.persist(r)
	h.touch(userID)
	JSON(w, http.StatusOK, state)
}

// touch updates last seen asynchronously with timeout.
func (h *ChatHandler) touch(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "error", err)
		}
	}()
}

// Clear empties the transcript.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	a, ok := h.assistant(w, r)
	if !ok {
		return
	}
	a.ClearMessages()
	h.persist(r)
	JSON(w, http.StatusOK, a.GetState())
}

// ClearError resets the error field.
func (h *ChatHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	a, ok := h.assistant(w, r)
	if !ok {
		return
	}
	a.ClearError()
	h.persist(r)
	JSON(w, http.StatusOK, a.GetState())
}

// UpdateContext merges a manual context override.
func (h *ChatHandler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	var partial domain.UserContext
	if err := decodeJSON(w, r, &partial); err != nil {
		Error(w, http.StatusBadRequest, "invalid context")
		return
	}
	a, ok := h.assistant(w, r)
	if !ok {
		return
	}
	a.UpdateUserContext(partial)
	h.persist(r)
	JSON(w, http.StatusOK, a.GetState())
}

type analyzeRequest struct {
	Message string              `json:"message"`
	Context *domain.UserContext `json:"context,omitempty"`
}

type analyzeResponse struct {
	Category    string             `json:"category,omitempty"`
	Confidence  float64            `json:"confidence"`
	Score       int                `json:"score"`
	MissingInfo []domain.Slot      `json:"missing_info"`
	FollowUps   []string           `json:"follow_ups"`
	Extracted   domain.UserContext `json:"extracted"`
	Context     domain.UserContext `json:"context"`
	Prompt      string             `json:"prompt"`
}

// Analyze previews routing for a message without touching any chat.
func (h *ChatHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	var current domain.UserContext
	if req.Context != nil {
		current = *req.Context
	}
	plan := h.planner.Plan(req.Message, current)

	resp := analyzeResponse{
		Category:    plan.Analysis.CategoryName(),
		Confidence:  plan.Analysis.Confidence,
		Score:       plan.Analysis.Score,
		MissingInfo: plan.Analysis.MissingInfo,
		FollowUps:   plan.FollowUps,
		Extracted:   plan.Extracted,
		Context:     plan.Context,
		Prompt:      plan.Prompt,
	}
	if resp.MissingInfo == nil {
		resp.MissingInfo = []domain.Slot{}
	}
	if resp.FollowUps == nil {
		resp.FollowUps = []string{}
	}
	JSON(w, http.StatusOK, resp)
}
