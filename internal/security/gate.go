// Package security guards the assistant: topic denylist, intent allow-list,
// per-user rate limits with a cooldown after violations, and a sanity check
// for composed system prompts.
package security

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ashureev/pickleai/internal/shared"
)

// Rejection reasons.
const (
	ReasonCooldown         = "cooldown"
	ReasonMinuteLimit      = "rate_limit_minute"
	ReasonDayLimit         = "rate_limit_day"
	ReasonBlockedPattern   = "blocked_pattern"
	ReasonDisallowedIntent = "disallowed_intent"
)

// Defaults.
const (
	DefaultPerMinute = 20
	DefaultPerDay    = 300
	DefaultCooldown  = 60 * time.Second
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
	// SuggestedAlternative is the text shown to the user on rejection.
	SuggestedAlternative string
	RateLimited          bool
	// CooldownRemaining is set only for rejections during a cooldown.
	CooldownRemaining time.Duration
}

// IsViolation reports whether the rejection should start a cooldown.
// Rate limit rejections do not.
func (d Decision) IsViolation() bool {
	return !d.Allowed && (d.Reason == ReasonBlockedPattern || d.Reason == ReasonDisallowedIntent)
}

// Config holds the gate limits.
type Config struct {
	PerMinute      int
	PerDay         int
	Cooldown       time.Duration
	AllowedIntents []Intent
}

// Gate runs the ordered checks for an inbound message.
type Gate struct {
	store   RateLimitStore
	cfg     Config
	allowed map[Intent]bool
	rand    shared.Rand
	now     func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithRand sets the source used to pick refusal messages.
func WithRand(r shared.Rand) Option {
	return func(g *Gate) { g.rand = r }
}

// NewGate creates a gate. Zero config values fall back to defaults and an
// empty allow-list allows every intent.
func NewGate(store RateLimitStore, cfg Config, opts ...Option) *Gate {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	if cfg.PerDay <= 0 {
		cfg.PerDay = DefaultPerDay
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if len(cfg.AllowedIntents) == 0 {
		cfg.AllowedIntents = AllIntents
	}
	g := &Gate{
		store:   store,
		cfg:     cfg,
		allowed: make(map[Intent]bool, len(cfg.AllowedIntents)),
		now:     time.Now,
	}
	for _, i := range cfg.AllowedIntents {
		g.allowed[i] = true
	}
	for _, o := range opts {
		o(g)
	}
	if g.rand == nil {
		g.rand = shared.NewTimeSeededRand()
	}
	return g
}

// Config returns the effective limits.
func (g *Gate) Config() Config {
	return g.cfg
}

// Check runs rate limiting, the denylist and the intent allow-list, in that
// order, stopping at the first failure. It does not record violations; the
// caller does that with RecordViolation.
func (g *Gate) Check(ctx context.Context, message, userID string) Decision {
	now := g.now()

	if d, limited := g.checkRate(ctx, userID, now); limited {
		slog.Info("Gate rejected message", "user_id", userID, "reason", d.Reason)
		return d
	}

	if MatchesBlockedPattern(message) {
		slog.Info("Gate rejected message", "user_id", userID, "reason", ReasonBlockedPattern)
		return Decision{
			Reason:               ReasonBlockedPattern,
			SuggestedAlternative: shared.Pick(g.rand, refusals),
		}
	}

	for _, intent := range DetectIntents(message) {
		if !g.allowed[intent] {
			slog.Info("Gate rejected message", "user_id", userID, "reason", ReasonDisallowedIntent, "intent", intent)
			return Decision{
				Reason:               ReasonDisallowedIntent,
				SuggestedAlternative: shared.Pick(g.rand, refusals),
			}
		}
	}

	return Decision{Allowed: true}
}

// checkRate enforces the cooldown and both windows. Store failures are
// logged and the rate check is skipped so an outage does not block chat.
func (g *Gate) checkRate(ctx context.Context, userID string, now time.Time) (Decision, bool) {
	rec, err := g.store.Get(ctx, userID)
	if err != nil {
		slog.Warn("Rate limit lookup failed", "user_id", userID, "error", err)
		return Decision{}, false
	}
	if remaining := rec.CooldownRemaining(now); remaining > 0 {
		return Decision{
			Reason:               ReasonCooldown,
			RateLimited:          true,
			CooldownRemaining:    remaining,
			SuggestedAlternative: cooldownMessage(remaining),
		}, true
	}

	rec, err = g.store.Increment(ctx, userID, now)
	if err != nil {
		slog.Warn("Rate limit increment failed", "user_id", userID, "error", err)
		return Decision{}, false
	}
	switch {
	case rec.MinuteCount > g.cfg.PerMinute:
		return Decision{
			Reason:               ReasonMinuteLimit,
			RateLimited:          true,
			SuggestedAlternative: "You're sending messages a little fast. Take a breather and try again in a minute.",
		}, true
	case rec.DayCount > g.cfg.PerDay:
		return Decision{
			Reason:               ReasonDayLimit,
			RateLimited:          true,
			SuggestedAlternative: "You've reached today's message limit. Come back tomorrow and we'll pick up where we left off!",
		}, true
	}
	return Decision{}, false
}

// RecordViolation starts the cooldown for userID.
func (g *Gate) RecordViolation(ctx context.Context, userID string) error {
	now := g.now()
	if err := g.store.SetCooldown(ctx, userID, now, now.Add(g.cfg.Cooldown)); err != nil {
		return fmt.Errorf("record violation for %s: %w", userID, err)
	}
	return nil
}

func cooldownMessage(remaining time.Duration) string {
	secs := int(math.Ceil(remaining.Seconds()))
	return fmt.Sprintf("Let's take a short pause. You can send another message in %d seconds.", secs)
}
