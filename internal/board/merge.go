package board

import (
	"math"

	"github.com/daszybak/fastbet/internal/feed"
)

// QuoteSource is the read side of the live feed.
type QuoteSource interface {
	Quotes() map[string]feed.Quote
}

// Merge overlays live quotes on the buttons of events. A quoted button shows
// the live ask, else the live mid, else keeps its polled price, and is marked
// live. Only events is modified; it is returned for convenience.
func Merge(events []Event, src QuoteSource) []Event {
	quotes := src.Quotes()
	if len(quotes) == 0 {
		return events
	}

	for i := range events {
		events[i].Sections.each(func(m *Market) {
			for j := range m.Buttons {
				b := &m.Buttons[j]
				q, ok := quotes[b.TokenID]
				if b.TokenID == "" || !ok {
					continue
				}
				switch {
				case q.Ask > 0:
					b.Price = q.Ask
				case q.Mid > 0:
					b.Price = q.Mid
				}
				b.Live = true
			}
		})
	}
	return events
}

// Prices maps every quoted token to its display price: the ask, else the
// mid, else the bid, rounded to 4 decimals.
func Prices(quotes map[string]feed.Quote) map[string]float64 {
	out := make(map[string]float64, len(quotes))
	for id, q := range quotes {
		var p float64
		switch {
		case q.Ask > 0:
			p = q.Ask
		case q.Mid > 0:
			p = q.Mid
		default:
			p = q.Bid
		}
		out[id] = math.Round(p*1e4) / 1e4
	}
	return out
}
