package security

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local RateLimitStore with fixed windows.
// Restarting the process clears every counter and cooldown.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	now     func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type memoryRecord struct {
	mu            sync.Mutex
	minuteStart   time.Time
	dayStart      time.Time
	minuteCount   int
	dayCount      int
	lastViolation time.Time
	cooldownUntil time.Time
	lastSeen      time.Time
}

func (r *memoryRecord) snapshot() Record {
	return Record{
		MinuteCount:   r.minuteCount,
		DayCount:      r.dayCount,
		LastViolation: r.lastViolation,
		CooldownUntil: r.cooldownUntil,
	}
}

// expired reports whether the record carries no state worth keeping.
func (r *memoryRecord) expired(now time.Time) bool {
	return now.Sub(r.lastSeen) >= DayWindow && !now.Before(r.cooldownUntil)
}

// NewMemoryStore creates a store and starts the background eviction
// goroutine. Call Close to stop it.
func NewMemoryStore(evictEvery time.Duration) *MemoryStore {
	return newMemoryStore(evictEvery, time.Now)
}

func newMemoryStore(evictEvery time.Duration, now func() time.Time) *MemoryStore {
	if evictEvery <= 0 {
		evictEvery = MinuteWindow
	}
	s := &MemoryStore{
		records: make(map[string]*memoryRecord),
		now:     now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.evictLoop(evictEvery)
	return s
}

func (s *MemoryStore) record(userID string) *memoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		r = &memoryRecord{}
		s.records[userID] = r
	}
	return r
}

// Get returns the user's record. Unknown users get a zero record.
func (s *MemoryStore) Get(_ context.Context, userID string) (Record, error) {
	s.mu.Lock()
	r, ok := s.records[userID]
	s.mu.Unlock()
	if !ok {
		return Record{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// Increment bumps both counters under the record lock.
func (s *MemoryStore) Increment(_ context.Context, userID string, now time.Time) (Record, error) {
	r := s.record(userID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.minuteStart.IsZero() || now.Sub(r.minuteStart) >= MinuteWindow {
		r.minuteStart, r.minuteCount = now, 0
	}
	if r.dayStart.IsZero() || now.Sub(r.dayStart) >= DayWindow {
		r.dayStart, r.dayCount = now, 0
	}
	r.minuteCount++
	r.dayCount++
	r.lastSeen = now
	return r.snapshot(), nil
}

// SetCooldown records a violation.
func (s *MemoryStore) SetCooldown(_ context.Context, userID string, violationAt, until time.Time) error {
	r := s.record(userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastViolation = violationAt
	r.cooldownUntil = until
	r.lastSeen = violationAt
	return nil
}

// Reset forgets everything about a user.
func (s *MemoryStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// Len returns the number of tracked users.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close stops the eviction goroutine and waits for it to exit.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) evictLoop(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

// evict removes records idle for a full day whose cooldown has passed.
func (s *MemoryStore) evict() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		r.mu.Lock()
		expired := r.expired(now)
		r.mu.Unlock()
		if expired {
			delete(s.records, id)
		}
	}
}
