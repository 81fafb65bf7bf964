package feed

import (
	"math"
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(5*time.Second, 1.5, 60*time.Second)

	prev := time.Duration(0)
	for n := 1; n <= 12; n++ {
		want := min(time.Duration(float64(5*time.Second)*math.Pow(1.5, float64(n-1))), 60*time.Second)
		got := b.Next()
		if got != want {
			t.Errorf("attempt %d: got %v, want %v", n, got, want)
		}
		if got < prev {
			t.Errorf("attempt %d: wait decreased from %v to %v", n, prev, got)
		}
		prev = got
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0, 0)

	if got := b.Next(); got != DefaultBackoffInitial {
		t.Errorf("first wait = %v, want %v", got, DefaultBackoffInitial)
	}
	if got := b.Next(); got != 7500*time.Millisecond {
		t.Errorf("second wait = %v, want 7.5s", got)
	}
	for i := 0; i < 20; i++ {
		b.Next()
	}
	if got := b.Next(); got != DefaultBackoffMax {
		t.Errorf("capped wait = %v, want %v", got, DefaultBackoffMax)
	}
}
