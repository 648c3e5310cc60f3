package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/domain"
)

type sentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fakeServer struct {
	mu       sync.Mutex
	requests [][]sentMessage
	reply    string
	status   int
	delay    time.Duration
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var body struct {
		Messages []sentMessage `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, body.Messages)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		return
	}

	choices := []map[string]any{}
	if f.reply != "" {
		choices = append(choices, map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.reply},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": choices,
	})
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveLLMRequest(status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func newTestClient(t *testing.T, f *fakeServer, cfg Config) (*Client, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/v1"
	cfg.Model = "test-model"
	obs := &recordingObserver{}
	return New(cfg, WithObserver(obs)), obs
}

func history(n int) []domain.ChatMessage {
	out := make([]domain.ChatMessage, n)
	for i := range out {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = domain.ChatMessage{ID: int64(i + 1), Role: role, Content: "m" + string(rune('a'+i))}
	}
	return out
}

func TestComplete_SendsPromptAndHistory(t *testing.T) {
	f := &fakeServer{reply: "Try a midweight paddle."}
	c, obs := newTestClient(t, f, Config{HistoryLimit: 3})

	got, err := c.Complete(context.Background(), "SYSTEM", history(5), domain.UserContext{})
	require.NoError(t, err)
	assert.Equal(t, "Try a midweight paddle.", got)

	require.Len(t, f.requests, 1)
	assert.Equal(t, []sentMessage{
		{Role: "system", Content: "SYSTEM"},
		{Role: "user", Content: "mc"},
		{Role: "assistant", Content: "md"},
		{Role: "user", Content: "me"},
	}, f.requests[0])
	assert.Equal(t, []string{StatusOK}, obs.statuses)
}

func TestComplete_EmptyResponse(t *testing.T) {
	f := &fakeServer{}
	c, obs := newTestClient(t, f, Config{})

	_, err := c.Complete(context.Background(), "SYSTEM", history(1), domain.UserContext{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, []string{StatusEmpty}, obs.statuses)
}

func TestComplete_UpstreamError(t *testing.T) {
	f := &fakeServer{status: http.StatusInternalServerError}
	c, obs := newTestClient(t, f, Config{MaxRetries: 0})

	_, err := c.Complete(context.Background(), "SYSTEM", history(1), domain.UserContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, []string{StatusError}, obs.statuses)
}

func TestComplete_Timeout(t *testing.T) {
	f := &fakeServer{reply: "late", delay: 2 * time.Second}
	c, obs := newTestClient(t, f, Config{Timeout: 50 * time.Millisecond})

	_, err := c.Complete(context.Background(), "SYSTEM", history(1), domain.UserContext{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{StatusTimeout}, obs.statuses)
}
