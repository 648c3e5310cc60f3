package shared

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source used for picking follow-up questions and
// refusal messages. *rand.Rand satisfies it; tests pass a seeded one.
type Rand interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// NewRand returns a goroutine-safe source seeded with seed.
func NewRand(seed int64) Rand {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRand returns a goroutine-safe source seeded from the clock.
func NewTimeSeededRand() Rand {
	return NewRand(time.Now().UnixNano())
}

// Pick returns a uniformly chosen element of options, or "" if empty.
func Pick(r Rand, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[r.Intn(len(options))]
}
