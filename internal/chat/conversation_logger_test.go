package chat

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:       true,
		Dir:           dir,
		GlobalEnabled: true,
		GlobalPath:    filepath.Join(dir, "all", "all.ndjson"),
		QueueSize:     16,
	}, slog.Default())
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Log(ConversationLogEvent{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    "chat_http",
		Direction:  "outbound",
		EventType:  EventUserMessage,
		ContentRaw: "which\tpaddle   for  spin?",
	})

	line := waitForLogLine(t, filepath.Join(dir, "user-1", "sess-1.ndjson"))
	var got ConversationLogEvent
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "which\tpaddle   for  spin?", got.ContentRaw)
	assert.Equal(t, "which paddle for spin?", got.Content)
	assert.NotEmpty(t, got.Timestamp)

	global := waitForLogLine(t, filepath.Join(dir, "all", "all.ndjson"))
	assert.Equal(t, line, global)
}

func TestConversationLoggerCloseDrains(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 64}, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		logger.Log(ConversationLogEvent{UserID: "u", SessionID: "s", EventType: EventAssistantMessage, ContentRaw: "hi"})
	}
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Log(ConversationLogEvent{UserID: "u", SessionID: "s", ContentRaw: "after close"})

	data, err := os.ReadFile(filepath.Join(dir, "u", "s.ndjson"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 10)
}

func TestConversationLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, noopConversationLogger{}, logger)
	assert.NoError(t, logger.Close())
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m plain"
	clean := cleanForReadability(raw)
	assert.NotContains(t, clean, "\x1b[31m")
	assert.Contains(t, clean, "error plain")
}

func TestSafePathPart(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "anon_abc", safePathPart("anon_abc"))
	assert.Equal(t, "_.._etc", safePathPart("/../etc"))
	assert.Equal(t, "unknown", safePathPart(".."))
	assert.Equal(t, "unknown", safePathPart(""))
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
