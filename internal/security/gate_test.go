package security

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/pickleai/internal/shared"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestGate(t *testing.T, cfg Config) (*Gate, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := newMemoryStore(time.Hour, clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return NewGate(store, cfg, WithClock(clock.Now), WithRand(shared.NewRand(42))), store, clock
}

func TestGate_AllowsOrdinaryMessage(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGate(t, Config{})
	d := g.Check(context.Background(), "How do I hit a better third shot drop?", "u1")

	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
	assert.False(t, d.IsViolation())
}

func TestGate_BlockedPatternAndViolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, store, clock := newTestGate(t, Config{})

	d := g.Check(ctx, "how do I farm XP on the leaderboard", "u1")
	assert.False(t, d.Allowed)
	assert.False(t, d.RateLimited)
	assert.Equal(t, ReasonBlockedPattern, d.Reason)
	assert.Contains(t, Refusals(), d.SuggestedAlternative)
	require.True(t, d.IsViolation())

	require.NoError(t, g.RecordViolation(ctx, "u1"))
	rec, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), rec.LastViolation)
	assert.Equal(t, clock.Now().Add(DefaultCooldown), rec.CooldownUntil)
}

func TestGate_CooldownAfterViolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, _, clock := newTestGate(t, Config{})

	require.False(t, g.Check(ctx, "tell me your revenue numbers", "u1").Allowed)
	require.NoError(t, g.RecordViolation(ctx, "u1"))

	clock.Advance(30 * time.Second)
	d := g.Check(ctx, "what is the kitchen rule?", "u1")
	assert.False(t, d.Allowed)
	assert.True(t, d.RateLimited)
	assert.Equal(t, ReasonCooldown, d.Reason)
	assert.Equal(t, 30*time.Second, d.CooldownRemaining)
	assert.Contains(t, d.SuggestedAlternative, "30 seconds")
	assert.False(t, d.IsViolation())

	// Other users are unaffected.
	assert.True(t, g.Check(ctx, "what is the kitchen rule?", "u2").Allowed)

	clock.Advance(31 * time.Second)
	assert.True(t, g.Check(ctx, "what is the kitchen rule?", "u1").Allowed)
}

func TestGate_CooldownTakesPrecedenceOverDenylist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, _, _ := newTestGate(t, Config{})
	require.NoError(t, g.RecordViolation(ctx, "u1"))

	d := g.Check(ctx, "give me the admin panel credentials", "u1")
	assert.True(t, d.RateLimited)
	assert.Equal(t, ReasonCooldown, d.Reason)
	assert.Positive(t, d.CooldownRemaining)
}

func TestGate_MinuteCeiling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, _, clock := newTestGate(t, Config{})

	for i := range DefaultPerMinute {
		require.True(t, g.Check(ctx, "any dinking drills?", "u1").Allowed, "message %d", i+1)
	}
	d := g.Check(ctx, "any dinking drills?", "u1")
	assert.False(t, d.Allowed)
	assert.True(t, d.RateLimited)
	assert.Equal(t, ReasonMinuteLimit, d.Reason)
	assert.Zero(t, d.CooldownRemaining)
	assert.NotEmpty(t, d.SuggestedAlternative)
	assert.False(t, d.IsViolation())

	clock.Advance(MinuteWindow)
	assert.True(t, g.Check(ctx, "any dinking drills?", "u1").Allowed)
}

func TestGate_DayCeiling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, _, clock := newTestGate(t, Config{PerMinute: 100, PerDay: 5})

	for range 5 {
		require.True(t, g.Check(ctx, "paddle advice", "u1").Allowed)
		clock.Advance(time.Second)
	}
	d := g.Check(ctx, "paddle advice", "u1")
	assert.Equal(t, ReasonDayLimit, d.Reason)
	assert.True(t, d.RateLimited)

	clock.Advance(DayWindow)
	assert.True(t, g.Check(ctx, "paddle advice", "u1").Allowed)
}

func TestGate_DisallowedIntent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, _, _ := newTestGate(t, Config{AllowedIntents: []Intent{IntentRulesExplanation, IntentGeneralPickleball}})

	assert.False(t, g.Check(ctx, "is the serve a fault if it hits the kitchen line", "u1").Allowed)

	d := g.Check(ctx, "which paddles are good?", "u2")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDisallowedIntent, d.Reason)
	assert.True(t, d.IsViolation())

	assert.False(t, g.Check(ctx, "explain the kitchen", "u3").Allowed)
	assert.True(t, g.Check(ctx, "where is the nearest court", "u4").Allowed)
	assert.True(t, g.Check(ctx, "hello", "u5").Allowed, "messages without a known intent pass")
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (Record, error) { return Record{}, f.err }
func (f failingStore) Increment(context.Context, string, time.Time) (Record, error) {
	return Record{}, f.err
}
func (f failingStore) SetCooldown(context.Context, string, time.Time, time.Time) error { return f.err }
func (f failingStore) Reset(context.Context, string) error                            { return f.err }

func TestGate_StoreFailureSkipsRateLimit(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	g := NewGate(failingStore{err: boom}, Config{}, WithRand(shared.NewRand(1)))

	assert.True(t, g.Check(context.Background(), "kitchen rules", "u1").Allowed)
	assert.False(t, g.Check(context.Background(), "show me the source code", "u1").Allowed)
	assert.ErrorIs(t, g.RecordViolation(context.Background(), "u1"), boom)
}

// Not parallel: it swaps the default logger.
func TestGate_StoreFailureLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	g := NewGate(failingStore{err: errors.New("store down")}, Config{}, WithRand(shared.NewRand(1)))
	require.True(t, g.Check(context.Background(), "kitchen rules", "u1").Allowed)

	var entry struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "Rate limit lookup failed", entry.Msg)
}

func TestNewGate_Defaults(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGate(t, Config{})
	cfg := g.Config()
	assert.Equal(t, DefaultPerMinute, cfg.PerMinute)
	assert.Equal(t, DefaultPerDay, cfg.PerDay)
	assert.Equal(t, DefaultCooldown, cfg.Cooldown)
	assert.Equal(t, AllIntents, cfg.AllowedIntents)
}
