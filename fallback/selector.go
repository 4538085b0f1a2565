package fallback

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Selector picks one of n canned variants. Implementations must be safe for
// concurrent use and return a value in [0, n).
type Selector interface {
	Pick(n int) int
}

// RandomSelector picks uniformly from a seeded PCG source.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a RandomSelector. Equal seeds give equal sequences.
func NewRandomSelector(seed uint64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func newClockSelector() *RandomSelector {
	return NewRandomSelector(uint64(time.Now().UnixNano()))
}

// Pick implements Selector.
func (s *RandomSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// RoundRobinSelector cycles through the variants in order.
type RoundRobinSelector struct {
	next atomic.Uint64
}

// NewRoundRobinSelector creates a RoundRobinSelector starting at variant 0.
func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{}
}

// Pick implements Selector.
func (s *RoundRobinSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return int((s.next.Add(1) - 1) % uint64(n))
}
