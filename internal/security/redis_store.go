package security

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	r "gopkg.in/redis.v5"
)

const redisPrefix = "_PICKLEAI_RL_"

// RedisStore shares rate limiting state between server instances.
// Each window is a counter key named after its bucket, so expiry alone
// resets it.
type RedisStore struct {
	client *r.Client
	now    func() time.Time
}

// NewRedisStore connects to the redis server at url.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := r.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := r.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

func minuteKey(userID string, t time.Time) string {
	return redisPrefix + userID + ":m:" + strconv.FormatInt(t.Unix()/int64(MinuteWindow/time.Second), 10)
}

func dayKey(userID string, t time.Time) string {
	return redisPrefix + userID + ":d:" + strconv.FormatInt(t.Unix()/int64(DayWindow/time.Second), 10)
}

func cooldownKey(userID string) string  { return redisPrefix + userID + ":cooldown" }
func violationKey(userID string) string { return redisPrefix + userID + ":violation" }

func (s *RedisStore) getInt(key string) (int64, error) {
	v, err := s.client.Get(key).Int64()
	if errors.Is(err, r.Nil) {
		return 0, nil
	}
	return v, err
}

// Get reads the counters of the current buckets and the cooldown.
func (s *RedisStore) Get(ctx context.Context, userID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	now := s.now()
	var rec Record
	minute, err := s.getInt(minuteKey(userID, now))
	if err != nil {
		return Record{}, fmt.Errorf("get minute counter: %w", err)
	}
	day, err := s.getInt(dayKey(userID, now))
	if err != nil {
		return Record{}, fmt.Errorf("get day counter: %w", err)
	}
	until, err := s.getInt(cooldownKey(userID))
	if err != nil {
		return Record{}, fmt.Errorf("get cooldown: %w", err)
	}
	violation, err := s.getInt(violationKey(userID))
	if err != nil {
		return Record{}, fmt.Errorf("get violation: %w", err)
	}
	rec.MinuteCount, rec.DayCount = int(minute), int(day)
	if until > 0 {
		rec.CooldownUntil = time.Unix(0, until)
	}
	if violation > 0 {
		rec.LastViolation = time.Unix(0, violation)
	}
	return rec, nil
}

// Increment uses INCR, which is atomic on the server, for both windows.
func (s *RedisStore) Increment(ctx context.Context, userID string, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	var minute, day *r.IntCmd
	mk, dk := minuteKey(userID, now), dayKey(userID, now)
	_, err := s.client.Pipelined(func(p *r.Pipeline) error {
		minute = p.Incr(mk)
		p.Expire(mk, 2*MinuteWindow)
		day = p.Incr(dk)
		p.Expire(dk, DayWindow+time.Hour)
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("increment counters: %w", err)
	}
	return Record{MinuteCount: int(minute.Val()), DayCount: int(day.Val())}, nil
}

// SetCooldown stores the cooldown deadline with a matching TTL.
func (s *RedisStore) SetCooldown(ctx context.Context, userID string, violationAt, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Set(violationKey(userID), violationAt.UnixNano(), DayWindow).Err(); err != nil {
		return fmt.Errorf("set violation: %w", err)
	}
	ttl := until.Sub(violationAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(cooldownKey(userID), until.UnixNano(), ttl).Err(); err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// Reset deletes the user's current counters and cooldown.
func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now()
	return s.client.Del(minuteKey(userID, now), dayKey(userID, now), cooldownKey(userID), violationKey(userID)).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
