package pacing

import (
	"math/rand"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

// Scheduler hands out per-recipient send times spaced by a bounded random interval.
type Scheduler struct {
	min       int64
	max       int64
	randInt63 func(n int64) int64
}

// New builds a scheduler over [min, max] milliseconds. Negative bounds fall back
// to the defaults and max is raised to min when inverted. randInt63 must behave
// like rand.Int63n; nil uses math/rand.
func New(lo, hi int64, randInt63 func(n int64) int64) *Scheduler {
	if lo < 0 {
		lo = domain.DefaultIntervalMinMillis
	}
	if hi < 0 {
		hi = domain.DefaultIntervalMaxMillis
	}
	if hi < lo {
		hi = lo
	}
	if randInt63 == nil {
		randInt63 = rand.Int63n
	}
	return &Scheduler{min: lo, max: hi, randInt63: randInt63}
}

// FromSettings builds a scheduler from a batch's delivery settings.
func FromSettings(settings domain.DeliverySettings, randInt63 func(n int64) int64) *Scheduler {
	lo, hi := settings.Bounds()
	return New(lo, hi, randInt63)
}

func (s *Scheduler) Bounds() (int64, int64) {
	return s.min, s.max
}

// Interval returns a value uniformly distributed over [min, max] inclusive.
func (s *Scheduler) Interval() int64 {
	if s.max == s.min {
		return s.min
	}
	return s.min + s.randInt63(s.max-s.min+1)
}

// Times returns n cumulative send times. The first equals anchor.
func (s *Scheduler) Times(anchor int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	times := make([]int64, n)
	times[0] = anchor
	for i := 1; i < n; i++ {
		times[i] = times[i-1] + s.Interval()
	}
	return times
}
