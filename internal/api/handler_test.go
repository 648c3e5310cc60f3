//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/config"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/identity"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/security"
	"github.com/ashureev/pickleai/internal/shared"
	"github.com/ashureev/pickleai/internal/store"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "message_in_progress")

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"error":"message_in_progress"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

type fakeModel struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (m *fakeModel) Complete(context.Context, string, []domain.ChatMessage, domain.UserContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, nil
}

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	repo   store.Repository
	model  *fakeModel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	limits := security.NewMemoryStore(time.Minute)
	t.Cleanup(func() { limits.Close() })
	gate := security.NewGate(limits, security.Config{}, security.WithRand(shared.NewRand(1)))

	model := &fakeModel{reply: "Happy to help!"}
	planner := chat.NewPlanner(knowledge.Default(), shared.NewRand(3))
	sessions := chat.NewSessions(repo, func(userID, sessionID string, restored *domain.ChatState) *chat.Assistant {
		opts := []chat.Option{chat.WithGate(gate), chat.WithSession(userID, sessionID, "test")}
		if restored != nil {
			opts = append(opts, chat.WithState(*restored))
		}
		return chat.NewAssistant(planner, model, opts...)
	})

	cfg := &config.Config{RateLimit: config.RateLimitConfig{Backend: config.BackendMemory}}
	base := NewHandler(repo, sessions, true)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	NewHealthHandler(repo, cfg).RegisterHealth(r)
	NewChatHandler(base, planner, gate.Config(), true).RegisterRoutes(r)
	r.Get("/ws/chat", NewWebSocketHandler(base, "*").ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}, repo: repo, model: model}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
