package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pickleai/internal/config"
	"github.com/ashureev/pickleai/internal/store"
)

// HealthHandler reports dependency health.
type HealthHandler struct {
	repo store.Repository
	cfg  *config.Config
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, cfg: cfg}
}

// RegisterHealth registers the detailed health route. The bare /health
// liveness probe is served by chi's Heartbeat middleware.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health checks the database and reports which backends are in use.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	database := "ok"
	if err := h.repo.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		database = "unavailable"
	}

	JSON(w, status, map[string]interface{}{
		"status":             http.StatusText(status),
		"database":           database,
		"rate_limit_backend": h.cfg.RateLimit.Backend,
		"ai_enabled":         h.cfg.LLM.Enabled(),
	})
}
