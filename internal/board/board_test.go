package board

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/daszybak/fastbet/internal/feed"
	"github.com/daszybak/fastbet/internal/polymarket/gamma"
)

func line(v float64) *float64 { return &v }

func market(typ, question string, tokens ...string) *gamma.Market {
	m := &gamma.Market{
		Question:         question,
		SportsMarketType: typ,
		Active:           true,
		AcceptingOrders:  true,
		ClobTokenIDs:     tokens,
	}
	for i := range tokens {
		m.Outcomes = append(m.Outcomes, []string{"Yes", "No", "Draw"}[i%3])
		m.OutcomePrices = append(m.OutcomePrices, "0.5")
	}
	return m
}

func TestBuild(t *testing.T) {
	total35 := market("totals", "O/U 3.5", "t35o", "t35u")
	total35.Line = line(3.5)
	total15 := market("totals", "O/U 1.5", "t15o", "t15u")
	total15.Line = line(1.5)

	closed := market("moneyline", "closed", "x1", "x2")
	closed.AcceptingOrders = false

	parent := &gamma.Event{
		ID:    "1",
		Slug:  "rma-bar",
		Title: "Real Madrid vs. Barcelona",
		Live:  true,
		Score: json.RawMessage(`"1-0"`),
		Markets: []*gamma.Market{
			market("moneyline", "Will Real Madrid win?", "ml1", "ml2"),
			total35,
			closed,
		},
	}
	child := &gamma.Event{
		ID:            "2",
		Slug:          "rma-bar-more-markets",
		ParentEventID: "1",
		Markets:       []*gamma.Market{total15, market("both_teams_to_score", "BTTS", "b1", "b2")},
	}
	orphan := &gamma.Event{ID: "3", ParentEventID: "999", Markets: []*gamma.Market{market("moneyline", "", "o1")}}
	empty := &gamma.Event{ID: "4", Slug: "empty", Markets: []*gamma.Market{closed}}

	events := Build([]*gamma.Event{child, parent, orphan, empty})
	if len(events) != 1 {
		t.Fatalf("built %d events, want 1: %+v", len(events), events)
	}

	ev := events[0]
	if ev.Slug != "rma-bar" || !ev.Live || string(ev.Score) != `"1-0"` {
		t.Errorf("event = %+v", ev)
	}
	if got := len(ev.Sections.Moneyline); got != 1 {
		t.Errorf("moneyline markets = %d", got)
	}
	if got := len(ev.Sections.BTTS); got != 1 {
		t.Errorf("btts markets = %d", got)
	}
	var lines []float64
	for _, m := range ev.Sections.Totals {
		lines = append(lines, *m.Line)
	}
	if !slices.Equal(lines, []float64{1.5, 3.5}) {
		t.Errorf("totals lines = %v", lines)
	}
	if len(parent.Markets) != 3 {
		t.Errorf("Build modified its input: parent has %d markets", len(parent.Markets))
	}

	want := []string{"ml1", "ml2", "t15o", "t15u", "t35o", "t35u", "b1", "b2"}
	if got := ev.TokenIDs(); !slices.Equal(got, want) {
		t.Errorf("token ids = %v, want %v", got, want)
	}
}

func TestBuildEmptySectionsEncodeAsArrays(t *testing.T) {
	events := Build([]*gamma.Event{{ID: "1", Markets: []*gamma.Market{market("moneyline", "", "a", "b")}}})
	raw, err := json.Marshal(events[0].Sections)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"moneyline", "totals", "spread", "btts", "other"} {
		if got[k] == nil {
			t.Errorf("section %q encoded as null", k)
		}
	}
}

func TestButtons(t *testing.T) {
	tests := []struct {
		name string
		m    gamma.Market
		want []Button
	}{
		{
			name: "zipped",
			m: gamma.Market{
				Outcomes:      []string{"Yes", "No"},
				OutcomePrices: []string{"0.62", "0.38"},
				ClobTokenIDs:  []string{"a", "b"},
			},
			want: []Button{{Outcome: "Yes", Price: 0.62, TokenID: "a"}, {Outcome: "No", Price: 0.38, TokenID: "b"}},
		},
		{
			name: "missing token skipped",
			m: gamma.Market{
				Outcomes:      []string{"Yes", "No"},
				OutcomePrices: []string{"0.62", "0.38"},
				ClobTokenIDs:  []string{"a"},
			},
			want: []Button{{Outcome: "Yes", Price: 0.62, TokenID: "a"}},
		},
		{
			name: "missing prices default",
			m: gamma.Market{
				Outcomes:     []string{"Yes", "No"},
				ClobTokenIDs: []string{"a", "b"},
			},
			want: []Button{{Outcome: "Yes", Price: DefaultPrice, TokenID: "a"}, {Outcome: "No", Price: DefaultPrice, TokenID: "b"}},
		},
		{
			name: "bad price list defaults",
			m: gamma.Market{
				Outcomes:      []string{"Yes"},
				OutcomePrices: []string{"n/a"},
				ClobTokenIDs:  []string{"a"},
			},
			want: []Button{{Outcome: "Yes", Price: DefaultPrice, TokenID: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Buttons(&tt.m); !slices.Equal(got, tt.want) {
				t.Errorf("Buttons() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		m    gamma.Market
		want Section
	}{
		{"moneyline type", gamma.Market{SportsMarketType: "moneyline"}, Moneyline},
		{"totals type", gamma.Market{SportsMarketType: "Totals"}, Totals},
		{"total goals", gamma.Market{SportsMarketType: "total_goals"}, Totals},
		{"spreads", gamma.Market{SportsMarketType: "spreads"}, Spread},
		{"handicap", gamma.Market{SportsMarketType: "match_handicap"}, Spread},
		{"btts type", gamma.Market{SportsMarketType: "both_teams_to_score"}, BTTS},
		{"btts slug", gamma.Market{SportsMarketType: "props", Slug: "rma-bar-btts"}, BTTS},
		{"other type", gamma.Market{SportsMarketType: "correct_score"}, Other},
		{"over question", gamma.Market{Question: "Over 2.5 goals?"}, Totals},
		{"o/u group title", gamma.Market{GroupItemTitle: "O/U 2.5"}, Totals},
		{"win question", gamma.Market{Question: "Will Arsenal win?"}, Moneyline},
		{"draw question", gamma.Market{Question: "Draw?"}, Moneyline},
		{"both teams question", gamma.Market{Question: "Both teams to score?"}, BTTS},
		{"nothing to go on", gamma.Market{Question: "First corner?"}, Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.m); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

type quoteMap map[string]feed.Quote

func (q quoteMap) Quotes() map[string]feed.Quote { return q }

func TestMerge(t *testing.T) {
	events := []Event{{
		Slug: "e",
		Sections: Sections{
			Moneyline: []Market{{Buttons: []Button{
				{Outcome: "A", Price: 0.5, TokenID: "A"},
				{Outcome: "B", Price: 0.5, TokenID: "B"},
				{Outcome: "C", Price: 0.5, TokenID: "C"},
				{Outcome: "D", Price: 0.5, TokenID: "D"},
			}}},
		},
	}}
	quotes := quoteMap{
		"A": {Bid: 0.40, Ask: 0.42, Mid: 0.41},
		"C": {Bid: 0.30, Ask: 0, Mid: 0.15},
		"D": {},
	}

	got := Merge(events, quotes)
	buttons := got[0].Sections.Moneyline[0].Buttons
	want := []Button{
		{Outcome: "A", Price: 0.42, TokenID: "A", Live: true},
		{Outcome: "B", Price: 0.5, TokenID: "B"},
		{Outcome: "C", Price: 0.15, TokenID: "C", Live: true},
		{Outcome: "D", Price: 0.5, TokenID: "D", Live: true},
	}
	if !slices.Equal(buttons, want) {
		t.Errorf("buttons = %+v, want %+v", buttons, want)
	}
	if &got[0] != &events[0] {
		t.Error("Merge did not return the caller's events")
	}
}

func TestMergeWithLiveStore(t *testing.T) {
	store := feed.NewStore()
	ask := 0.42
	store.Update("A", nil, &ask)

	events := []Event{{Sections: Sections{Other: []Market{{Buttons: []Button{{TokenID: "A", Price: 0.5}}}}}}}
	Merge(events, store)

	if b := events[0].Sections.Other[0].Buttons[0]; b.Price != 0.42 || !b.Live {
		t.Errorf("button = %+v", b)
	}
}

func TestPrices(t *testing.T) {
	got := Prices(map[string]feed.Quote{
		"ask": {Bid: 0.1, Ask: 0.123456, Mid: 0.11},
		"mid": {Bid: 0.2, Mid: 0.25},
		"bid": {Bid: 0.3},
		"nil": {},
	})
	want := map[string]float64{"ask": 0.1235, "mid": 0.25, "bid": 0.3, "nil": 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}
