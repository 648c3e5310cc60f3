package security

import (
	"context"
	"time"
)

// Rate limit windows.
const (
	MinuteWindow = time.Minute
	DayWindow    = 24 * time.Hour
)

// Record is the rate limiting state of one user.
type Record struct {
	MinuteCount   int
	DayCount      int
	LastViolation time.Time
	// CooldownUntil is zero when no cooldown was ever set.
	CooldownUntil time.Time
}

// CooldownRemaining returns how long the cooldown still lasts at now.
func (r Record) CooldownRemaining(now time.Time) time.Duration {
	if r.CooldownUntil.IsZero() || !now.Before(r.CooldownUntil) {
		return 0
	}
	return r.CooldownUntil.Sub(now)
}

// RateLimitStore keeps per-user counters and cooldowns. Implementations
// must make Increment atomic per user so two concurrent requests can never
// both observe the pre-increment count.
type RateLimitStore interface {
	Get(ctx context.Context, userID string) (Record, error)
	// Increment bumps both window counters and returns the updated record.
	Increment(ctx context.Context, userID string, now time.Time) (Record, error)
	SetCooldown(ctx context.Context, userID string, violationAt, until time.Time) error
	Reset(ctx context.Context, userID string) error
}
