// Package board turns polled Gamma events into the event/section/button
// snapshot served to the UI and overlays live quotes on it.
package board

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/daszybak/fastbet/internal/polymarket/gamma"
	"github.com/daszybak/fastbet/internal/price"
)

// DefaultPrice is shown for an outcome the snapshot has no price for.
const DefaultPrice = 0.5

type Section string

const (
	Moneyline Section = "moneyline"
	Totals    Section = "totals"
	Spread    Section = "spread"
	BTTS      Section = "btts"
	Other     Section = "other"
)

type Button struct {
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	TokenID string  `json:"token_id"`
	Live    bool    `json:"live"`
}

type Market struct {
	GroupItemTitle string   `json:"group_item_title"`
	Line           *float64 `json:"line"`
	Question       string   `json:"question"`
	Buttons        []Button `json:"buttons"`
}

type Sections struct {
	Moneyline []Market `json:"moneyline"`
	Totals    []Market `json:"totals"`
	Spread    []Market `json:"spread"`
	BTTS      []Market `json:"btts"`
	Other     []Market `json:"other"`
}

func newSections() Sections {
	return Sections{
		Moneyline: []Market{},
		Totals:    []Market{},
		Spread:    []Market{},
		BTTS:      []Market{},
		Other:     []Market{},
	}
}

func (s *Sections) add(sec Section, m Market) {
	switch sec {
	case Moneyline:
		s.Moneyline = append(s.Moneyline, m)
	case Totals:
		s.Totals = append(s.Totals, m)
	case Spread:
		s.Spread = append(s.Spread, m)
	case BTTS:
		s.BTTS = append(s.BTTS, m)
	default:
		s.Other = append(s.Other, m)
	}
}

// Len counts the markets over all sections.
func (s *Sections) Len() int {
	return len(s.Moneyline) + len(s.Totals) + len(s.Spread) + len(s.BTTS) + len(s.Other)
}

// each calls fn for every market of every section, in section order.
func (s *Sections) each(fn func(m *Market)) {
	for _, list := range [][]Market{s.Moneyline, s.Totals, s.Spread, s.BTTS, s.Other} {
		for i := range list {
			fn(&list[i])
		}
	}
}

type Event struct {
	Title    string          `json:"title"`
	Slug     string          `json:"slug"`
	Teams    []gamma.Team    `json:"teams"`
	Score    json.RawMessage `json:"score"`
	Live     bool            `json:"live"`
	Sections Sections        `json:"sections"`
}

// TokenIDs returns the token IDs of all buttons, in display order.
func (e *Event) TokenIDs() []string {
	var ids []string
	e.Sections.each(func(m *Market) {
		for _, b := range m.Buttons {
			if b.TokenID != "" {
				ids = append(ids, b.TokenID)
			}
		}
	})
	return ids
}

// Build groups the markets of events into sections. Child events are
// folded into their parent and dropped when the parent is absent. Events
// without any tradable market are left out. The input is not modified.
func Build(events []*gamma.Event) []Event {
	parents := make([]*gamma.Event, 0, len(events))
	markets := make(map[gamma.ID][]*gamma.Market, len(events))
	var children []*gamma.Event

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.ParentEventID != "" {
			children = append(children, ev)
			continue
		}
		if _, dup := markets[ev.ID]; dup {
			continue
		}
		parents = append(parents, ev)
		markets[ev.ID] = slices.Clone(ev.Markets)
	}
	for _, c := range children {
		if ms, ok := markets[c.ParentEventID]; ok {
			markets[c.ParentEventID] = append(ms, c.Markets...)
		}
	}

	out := make([]Event, 0, len(parents))
	for _, ev := range parents {
		sections := newSections()
		for _, m := range markets[ev.ID] {
			if m == nil || !m.Active || !m.AcceptingOrders {
				continue
			}
			buttons := Buttons(m)
			if len(buttons) == 0 {
				continue
			}
			sections.add(Classify(m), Market{
				GroupItemTitle: m.GroupItemTitle,
				Line:           m.Line,
				Question:       m.Question,
				Buttons:        buttons,
			})
		}
		if sections.Len() == 0 {
			continue
		}
		slices.SortStableFunc(sections.Totals, func(a, b Market) int {
			return cmp.Compare(lineOf(a), lineOf(b))
		})

		teams := ev.Teams
		if teams == nil {
			teams = []gamma.Team{}
		}
		out = append(out, Event{
			Title:    ev.Title,
			Slug:     ev.Slug,
			Teams:    teams,
			Score:    ev.Score,
			Live:     ev.Live,
			Sections: sections,
		})
	}
	return out
}

func lineOf(m Market) float64 {
	if m.Line == nil {
		return 0
	}
	return *m.Line
}

// Buttons zips outcomes, prices and token IDs by index. Outcomes without a
// token ID are skipped; a missing or unparsable price shows DefaultPrice.
func Buttons(m *gamma.Market) []Button {
	prices := outcomePrices(m.OutcomePrices)

	var buttons []Button
	for i, outcome := range m.Outcomes {
		if i >= len(m.ClobTokenIDs) || m.ClobTokenIDs[i] == "" {
			continue
		}
		p := DefaultPrice
		if i < len(prices) {
			p = prices[i]
		}
		buttons = append(buttons, Button{
			Outcome: outcome,
			Price:   p,
			TokenID: m.ClobTokenIDs[i],
		})
	}
	return buttons
}

// outcomePrices parses the price list; a single bad entry invalidates it.
func outcomePrices(raw []string) []float64 {
	prices := make([]float64, 0, len(raw))
	for _, s := range raw {
		p, err := price.Parse(s)
		if err != nil {
			return nil
		}
		prices = append(prices, p.Float64())
	}
	return prices
}

// Classify maps a market onto a section by its sports market type, falling
// back to its question and group title when the type is missing.
func Classify(m *gamma.Market) Section {
	mt := strings.ToLower(m.SportsMarketType)
	switch mt {
	case "moneyline":
		return Moneyline
	case "totals", "total_goals":
		return Totals
	case "spreads", "match_handicap":
		return Spread
	case "both_teams_to_score":
		return BTTS
	}
	if strings.Contains(strings.ToLower(m.Slug), "btts") {
		return BTTS
	}
	if mt != "" {
		return Other
	}

	q := strings.ToLower(m.Question)
	gt := strings.ToLower(m.GroupItemTitle)
	switch {
	case strings.Contains(gt, "o/u"), strings.Contains(q, "over"), strings.Contains(q, "under"):
		return Totals
	case strings.Contains(q, "draw"), strings.Contains(q, "win"):
		return Moneyline
	case strings.Contains(q, "both teams"), strings.Contains(q, "btts"):
		return BTTS
	default:
		return Other
	}
}
