package gamma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StringList handles the double-encoded JSON arrays of the API. A plain
// array is accepted as well; elements may be strings or numbers.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*l = nil
			return nil
		}
		data = []byte(s)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("couldn't parse list: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(r)))
	}
	*l = out
	return nil
}

// Number is a float the API sends either as a JSON number or as a string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("couldn't parse number %q: %w", data, err)
	}
	*n = Number(f)
	return nil
}

// ID is an identifier the API sends either as a string or as a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(data)
	return nil
}

// Sport is one record of the /sports metadata endpoint.
type Sport struct {
	Sport  string `json:"sport"`
	Tags   string `json:"tags"`
	Series string `json:"series"`
}

// TagIDs parses the comma separated tag list, skipping anything that is not a number.
func (s Sport) TagIDs() []int {
	var ids []int
	for _, t := range strings.Split(strings.ReplaceAll(s.Tags, " ", ""), ",") {
		id, err := strconv.Atoi(t)
		if err != nil || id < 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

type Tag struct {
	ID    ID     `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type Team struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	League       string `json:"league"`
	Abbreviation string `json:"abbreviation"`
	Logo         string `json:"logo,omitempty"`
	Record       string `json:"record,omitempty"`
}

type Market struct {
	ID               ID         `json:"id"`
	ConditionID      string     `json:"conditionId"`
	Question         string     `json:"question"`
	Slug             string     `json:"slug"`
	GroupItemTitle   string     `json:"groupItemTitle"`
	SportsMarketType string     `json:"sportsMarketType"`
	Line             *float64   `json:"line"`
	Active           bool       `json:"active"`
	Closed           bool       `json:"closed"`
	AcceptingOrders  bool       `json:"acceptingOrders"`
	Outcomes         StringList `json:"outcomes"`
	OutcomePrices    StringList `json:"outcomePrices"`
	ClobTokenIDs     StringList `json:"clobTokenIds"`
	BestBid          Number     `json:"bestBid"`
	BestAsk          Number     `json:"bestAsk"`
}

type Event struct {
	ID            ID              `json:"id"`
	Slug          string          `json:"slug"`
	Title         string          `json:"title"`
	ParentEventID ID              `json:"parentEventId"`
	Live          bool            `json:"live"`
	Ended         bool            `json:"ended"`
	Score         json.RawMessage `json:"score"`
	Liquidity     Number          `json:"liquidity"`
	LiquidityClob Number          `json:"liquidityClob"`
	Volume        Number          `json:"volume"`
	Volume24hr    Number          `json:"volume24hr"`
	Tags          []Tag           `json:"tags"`
	Teams         []Team          `json:"teams"`
	Markets       []*Market       `json:"markets"`
}

// Key identifies the event for de-duplication: its slug, else its id.
func (e *Event) Key() string {
	if e.Slug != "" {
		return e.Slug
	}
	return string(e.ID)
}

// Rank orders events by how much is traded on them: liquidity plus twice
// the volume, each falling back to its CLOB or 24h variant when zero.
func (e *Event) Rank() float64 {
	liq := e.Liquidity
	if liq == 0 {
		liq = e.LiquidityClob
	}
	vol := e.Volume
	if vol == 0 {
		vol = e.Volume24hr
	}
	return float64(liq) + 2*float64(vol)
}

// TokenIDs returns the CLOB token IDs of all markets, in market order.
func (e *Event) TokenIDs() []string {
	var ids []string
	for _, m := range e.Markets {
		if m == nil {
			continue
		}
		for _, id := range m.ClobTokenIDs {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
