package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
)

const eventJSON = `{
	"id": "9001",
	"slug": "lal-rma-bar-2026-03-01",
	"title": "Real Madrid vs. Barcelona",
	"parentEventId": 12,
	"live": true,
	"score": "1-0",
	"liquidity": "1500.5",
	"volume": 200,
	"tags": [{"id": "1", "slug": "sports"}, {"id": 100350, "slug": "soccer"}],
	"teams": [{"id": 5, "name": "Real Madrid", "league": "lal"}],
	"markets": [{
		"id": "77",
		"question": "Will Real Madrid win?",
		"sportsMarketType": "moneyline",
		"line": null,
		"active": true,
		"acceptingOrders": true,
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.55\", \"0.45\"]",
		"clobTokenIds": "[\"111\", \"222\"]"
	}]
}`

func TestEventDecoding(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.ID != "9001" || ev.ParentEventID != "12" {
		t.Errorf("ids = %q, %q", ev.ID, ev.ParentEventID)
	}
	if ev.Tags[1].ID != "100350" || ev.Teams[0].League != "lal" {
		t.Errorf("tags/teams = %+v %+v", ev.Tags, ev.Teams)
	}
	if ev.Liquidity != 1500.5 || ev.Volume != 200 {
		t.Errorf("liquidity %v volume %v", ev.Liquidity, ev.Volume)
	}
	m := ev.Markets[0]
	if !slices.Equal(m.Outcomes, []string{"Yes", "No"}) ||
		!slices.Equal(m.OutcomePrices, []string{"0.55", "0.45"}) ||
		!slices.Equal(m.ClobTokenIDs, []string{"111", "222"}) {
		t.Errorf("market lists = %+v", m)
	}
	if m.Line != nil {
		t.Errorf("line = %v, want nil", *m.Line)
	}
	if !slices.Equal(ev.TokenIDs(), []string{"111", "222"}) {
		t.Errorf("token ids = %v", ev.TokenIDs())
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"double encoded", `"[\"a\",\"b\"]"`, []string{"a", "b"}, false},
		{"plain array", `["a","b"]`, []string{"a", "b"}, false},
		{"numbers", `"[0.5, 0.25]"`, []string{"0.5", "0.25"}, false},
		{"empty string", `""`, nil, false},
		{"null", `null`, nil, false},
		{"garbage", `"not a list"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l StringList
			err := json.Unmarshal([]byte(tt.in), &l)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !slices.Equal(l, tt.want) {
				t.Errorf("got %q, want %q", l, tt.want)
			}
		})
	}
}

func TestEventRank(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want float64
	}{
		{"liquidity and volume", Event{Liquidity: 100, Volume: 10}, 120},
		{"clob liquidity fallback", Event{LiquidityClob: 50, Volume: 1}, 52},
		{"24h volume fallback", Event{Liquidity: 5, Volume24hr: 7}, 19},
		{"nothing", Event{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Rank(); got != tt.want {
				t.Errorf("Rank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSportTagIDs(t *testing.T) {
	s := Sport{Sport: "epl", Tags: "1, 82,306, x,"}
	if got := s.TagIDs(); !slices.Equal(got, []int{1, 82, 306}) {
		t.Errorf("TagIDs() = %v", got)
	}
}

func TestClientQueries(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sports":
			_, _ = w.Write([]byte(`[{"sport":"nba","tags":"1,745"}]`))
		case "/events":
			mu.Lock()
			queries = append(queries, r.URL.RawQuery)
			mu.Unlock()
			_, _ = w.Write([]byte(`[` + eventJSON + `]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 0, 0)
	ctx := context.Background()

	sports, err := c.Sports(ctx)
	if err != nil || len(sports) != 1 || sports[0].Sport != "nba" {
		t.Fatalf("sports = %+v, %v", sports, err)
	}

	events, err := c.EventsByTag(ctx, 745)
	if err != nil || len(events) != 1 {
		t.Fatalf("events by tag = %v, %v", events, err)
	}
	if _, err := c.EventsBySlug(ctx, "lal-rma-bar-2026-03-01"); err != nil {
		t.Fatalf("events by slug: %v", err)
	}

	want := []string{
		"ascending=false&closed=false&limit=50&order=id&tag_id=745",
		"closed=false&limit=5&slug=lal-rma-bar-2026-03-01",
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(queries, want) {
		t.Errorf("queries = %q, want %q", queries, want)
	}
}

func TestClientCanceledContext(t *testing.T) {
	c := New("http://127.0.0.1:0", 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.EventsByTag(ctx, 1); err == nil {
		t.Error("expected an error for a canceled context")
	}
}
