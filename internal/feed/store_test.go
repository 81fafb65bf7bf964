package feed

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func fixedStore(now time.Time) *Store {
	s := NewStore()
	s.now = func() time.Time { return now }
	return s
}

func TestStoreUpdate(t *testing.T) {
	type step struct {
		bid, ask *float64
	}
	tests := []struct {
		name  string
		steps []step
		want  Quote
	}{
		{"both sides", []step{{f(0.4), f(0.42)}}, Quote{Bid: 0.4, Ask: 0.42, Mid: 0.41}},
		{"bid only mirrors to ask", []step{{f(0.3), nil}}, Quote{Bid: 0.3, Ask: 0.3, Mid: 0.3}},
		{"ask only mirrors to bid", []step{{nil, f(0.7)}}, Quote{Bid: 0.7, Ask: 0.7, Mid: 0.7}},
		{"bid then ask", []step{{f(0.40), nil}, {nil, f(0.42)}}, Quote{Bid: 0.40, Ask: 0.42, Mid: 0.41}},
		{"missing side keeps previous", []step{{f(0.4), f(0.5)}, {f(0.45), nil}}, Quote{Bid: 0.45, Ask: 0.5, Mid: 0.475}},
		{"later write wins", []step{{f(0.6), f(0.62)}, {f(0.1), f(0.2)}}, Quote{Bid: 0.1, Ask: 0.2, Mid: 0.15}},
		{"zero is a price", []step{{f(0), f(0.02)}}, Quote{Bid: 0, Ask: 0.02, Mid: 0.01}},
	}

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fixedStore(now)
			for _, st := range tt.steps {
				s.Update("A", st.bid, st.ask)
			}
			got, ok := s.Quote("A")
			if !ok {
				t.Fatal("quote missing")
			}
			if !approx(got.Bid, tt.want.Bid) || !approx(got.Ask, tt.want.Ask) || !approx(got.Mid, tt.want.Mid) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if !got.UpdatedAt.Equal(now) {
				t.Errorf("updated at = %v, want %v", got.UpdatedAt, now)
			}
		})
	}
}

func TestStoreIgnoresEmptyUpdates(t *testing.T) {
	s := NewStore()
	s.Update("", f(0.5), f(0.6))
	s.Update("A", nil, nil)

	if s.Len() != 0 {
		t.Fatalf("store should be empty, has %v", s.Quotes())
	}

	s.Update("A", f(0.5), nil)
	before, _ := s.Quote("A")
	s.Update("A", nil, nil)
	after, _ := s.Quote("A")
	if before != after {
		t.Errorf("empty update changed the quote: %+v -> %+v", before, after)
	}
}

func TestStoreQuotesIsACopy(t *testing.T) {
	s := NewStore()
	s.Update("A", f(0.5), nil)

	snapshot := s.Quotes()
	s.Update("B", f(0.1), nil)
	delete(snapshot, "A")

	if _, ok := snapshot["B"]; ok {
		t.Error("snapshot saw a later write")
	}
	if _, ok := s.Quote("A"); !ok {
		t.Error("deleting from the snapshot changed the store")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				v := f(float64(w) / 10)
				s.Update(fmt.Sprintf("T%d", i%20), v, v)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				for _, q := range s.Quotes() {
					if q.Bid != q.Ask {
						t.Errorf("torn quote %+v", q)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("len = %d, want 20", s.Len())
	}
}

func BenchmarkStoreUpdate(b *testing.B) {
	s := NewStore()
	bid, ask := f(0.41), f(0.43)

	for i := 0; i < b.N; i++ {
		s.Update("A", bid, ask)
	}
}
