// Package api provides HTTP handlers for the PickleAI API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	sessions *chat.Sessions
	isDev    bool
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, sessions *chat.Sessions, isDev bool) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
		isDev:    isDev,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
