package pacing

import (
	"math/rand"
	"testing"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

func TestTimesFixedInterval(t *testing.T) {
	t.Parallel()

	s := New(20000, 20000, nil)
	got := s.Times(1000, 3)
	want := []int64{1000, 21000, 41000}

	if len(got) != len(want) {
		t.Fatalf("len(Times) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Times()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTimesStayWithinBounds(t *testing.T) {
	t.Parallel()

	const lo, hi = 1500, 4000
	rng := rand.New(rand.NewSource(42))
	s := New(lo, hi, rng.Int63n)

	times := s.Times(0, 500)
	for i := 1; i < len(times); i++ {
		delta := times[i] - times[i-1]
		if delta < lo || delta > hi {
			t.Fatalf("delta[%d] = %d, want within [%d, %d]", i, delta, lo, hi)
		}
	}
}

func TestIntervalUsesInclusiveUpperBound(t *testing.T) {
	t.Parallel()

	var gotN int64
	s := New(10, 20, func(n int64) int64 {
		gotN = n
		return n - 1
	})

	if got := s.Interval(); got != 20 {
		t.Fatalf("Interval() = %d, want 20", got)
	}
	if gotN != 11 {
		t.Fatalf("random source called with n = %d, want 11", gotN)
	}
}

func TestNewNormalizesBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		min, max int64
		wantMin  int64
		wantMax  int64
	}{
		{name: "defaults for negatives", min: -1, max: -1, wantMin: domain.DefaultIntervalMinMillis, wantMax: domain.DefaultIntervalMaxMillis},
		{name: "inverted raises max", min: 5000, max: 100, wantMin: 5000, wantMax: 5000},
		{name: "zero interval", min: 0, max: 0, wantMin: 0, wantMax: 0},
		{name: "kept as given", min: 100, max: 200, wantMin: 100, wantMax: 200},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lo, hi := New(tt.min, tt.max, nil).Bounds()
			if lo != tt.wantMin || hi != tt.wantMax {
				t.Fatalf("Bounds() = (%d, %d), want (%d, %d)", lo, hi, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestFromSettingsDefaults(t *testing.T) {
	t.Parallel()

	lo, hi := FromSettings(domain.DeliverySettings{}, nil).Bounds()
	if lo != 20000 || hi != 60000 {
		t.Fatalf("Bounds() = (%d, %d), want (20000, 60000)", lo, hi)
	}
}

func TestTimesEmpty(t *testing.T) {
	t.Parallel()

	if got := New(1, 2, nil).Times(10, 0); got != nil {
		t.Fatalf("Times(0) = %v, want nil", got)
	}
}
