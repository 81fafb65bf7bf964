// Package feed keeps live best bid/ask quotes for Polymarket outcome tokens
// fed by a self-healing market channel connection.
package feed

import (
	"maps"
	"sync"
	"time"
)

// Quote is the latest best-of-book for one token. Both sides are always set
// once a quote exists.
type Quote struct {
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Mid       float64   `json:"mid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store maps token IDs to their latest quote. Writes are last-write-wins in
// arrival order and entries are never removed; UpdatedAt tells how stale one is.
type Store struct {
	mu     sync.Mutex
	quotes map[string]Quote
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		quotes: make(map[string]Quote),
		now:    time.Now,
	}
}

// Update merges an observation into the quote for tokenID. A nil side keeps
// the previous value, and a side that was never observed mirrors the other
// one. Updates with an empty tokenID or no side at all are ignored.
func (s *Store) Update(tokenID string, bid, ask *float64) {
	if tokenID == "" || (bid == nil && ask == nil) {
		return
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.quotes[tokenID]
	q := prev
	switch {
	case bid != nil:
		q.Bid = *bid
	case !ok:
		q.Bid = *ask
	}
	switch {
	case ask != nil:
		q.Ask = *ask
	case !ok:
		q.Ask = *bid
	}
	q.Mid = (q.Bid + q.Ask) / 2
	q.UpdatedAt = now

	s.quotes[tokenID] = q
}

func (s *Store) Quote(tokenID string) (Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[tokenID]
	return q, ok
}

// Quotes returns a copy of every quote, safe to iterate while updates continue.
func (s *Store) Quotes() map[string]Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.quotes)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.quotes)
}
