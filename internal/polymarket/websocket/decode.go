package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daszybak/fastbet/internal/price"
)

const (
	BookEvent           = "book"
	PriceChangeEvent    = "price_change"
	LastTradePriceEvent = "last_trade_price"
	TickSizeChangeEvent = "tick_size_change"
)

var (
	ErrMissingAssetID = errors.New("missing asset_id")
	ErrMissingPrice   = errors.New("missing price")
)

type envelope struct {
	EventType string `json:"event_type"`
}

type Book struct {
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
	Bids      []OrderSummary `json:"bids"`
	Asks      []OrderSummary `json:"asks"`
	// Older payloads name the sides buys and sells.
	Buys  []OrderSummary `json:"buys"`
	Sells []OrderSummary `json:"sells"`
}

type OrderSummary struct {
	Price *price.Price `json:"price"`
	Size  string       `json:"size"`
}

type PriceChange struct {
	Market       string             `json:"market"`
	Timestamp    string             `json:"timestamp"`
	PriceChanges []PriceChangeEntry `json:"price_changes"`
}

type PriceChangeEntry struct {
	AssetID string        `json:"asset_id"`
	Price   string        `json:"price"`
	Size    string        `json:"size"`
	Side    string        `json:"side"`
	Hash    string        `json:"hash"`
	BestBid OptionalPrice `json:"best_bid"`
	BestAsk OptionalPrice `json:"best_ask"`
}

type LastTradePrice struct {
	AssetID    string       `json:"asset_id"`
	FeeRateBPS string       `json:"fee_rate_bps"`
	Market     string       `json:"market"`
	Price      *price.Price `json:"price"`
	Side       string       `json:"side"`
	Size       string       `json:"size"`
	Timestamp  string       `json:"timestamp"`
}

// OptionalPrice is a best-of-book side that may be left unchanged by an
// update. Absent, null and "" all mean no change.
type OptionalPrice struct {
	Price price.Price
	Valid bool
}

func (o *OptionalPrice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		*o = OptionalPrice{}
		return nil
	}
	var p price.Price
	if err := p.UnmarshalJSON(data); err != nil {
		return err
	}
	*o = OptionalPrice{Price: p, Valid: true}
	return nil
}

func (o OptionalPrice) Float() *float64 {
	if !o.Valid {
		return nil
	}
	return floatPtr(o.Price)
}

// Observation is one best bid/ask reading. A nil side carries no information.
type Observation struct {
	AssetID string
	Bid     *float64
	Ask     *float64
}

// Result is the outcome of decoding one message of a frame. A message is
// either applied as a whole or skipped with Err set.
type Result struct {
	EventType    string
	Observations []Observation
	Err          error
}

func (r Result) Skipped() bool {
	return r.Err != nil
}

// Decode turns one frame into per-message results, in frame order. A frame
// holds either a single JSON object or an array of them. Unknown event types
// produce a result without observations.
func Decode(frame []byte) []Result {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 || string(frame) == KeepaliveReply {
		return nil
	}

	switch frame[0] {
	case '[':
		var batch []json.RawMessage
		if err := json.Unmarshal(frame, &batch); err != nil {
			return []Result{{Err: fmt.Errorf("couldn't parse batch: %w", err)}}
		}
		results := make([]Result, 0, len(batch))
		for _, raw := range batch {
			results = append(results, decodeMessage(raw))
		}
		return results
	case '{':
		return []Result{decodeMessage(frame)}
	default:
		return []Result{{Err: fmt.Errorf("unexpected frame %.32q", frame)}}
	}
}

func decodeMessage(raw []byte) Result {
	base := envelope{}
	if err := json.Unmarshal(raw, &base); err != nil {
		return Result{Err: fmt.Errorf("couldn't parse base message: %w", err)}
	}

	res := Result{EventType: base.EventType}
	switch base.EventType {
	case BookEvent:
		res.Observations, res.Err = decodeBook(raw)
	case PriceChangeEvent:
		res.Observations, res.Err = decodePriceChange(raw)
	case LastTradePriceEvent:
		res.Observations, res.Err = decodeLastTradePrice(raw)
	}
	return res
}

func decodeBook(raw []byte) ([]Observation, error) {
	book := &Book{}
	if err := json.Unmarshal(raw, book); err != nil {
		return nil, fmt.Errorf("couldn't parse book event: %w", err)
	}
	if book.AssetID == "" {
		return nil, fmt.Errorf("book event: %w", ErrMissingAssetID)
	}

	bids, asks := book.Bids, book.Asks
	if len(bids) == 0 {
		bids = book.Buys
	}
	if len(asks) == 0 {
		asks = book.Sells
	}

	bid, err := bestOf(bids)
	if err != nil {
		return nil, fmt.Errorf("book event bids: %w", err)
	}
	ask, err := bestOf(asks)
	if err != nil {
		return nil, fmt.Errorf("book event asks: %w", err)
	}
	if bid == nil && ask == nil {
		return nil, nil
	}
	return []Observation{{AssetID: book.AssetID, Bid: bid, Ask: ask}}, nil
}

// bestOf reads the first level of a side.
func bestOf(levels []OrderSummary) (*float64, error) {
	if len(levels) == 0 {
		return nil, nil
	}
	if levels[0].Price == nil {
		return nil, ErrMissingPrice
	}
	return floatPtr(*levels[0].Price), nil
}

func decodePriceChange(raw []byte) ([]Observation, error) {
	pc := &PriceChange{}
	if err := json.Unmarshal(raw, pc); err != nil {
		return nil, fmt.Errorf("couldn't parse price change event: %w", err)
	}

	obs := make([]Observation, 0, len(pc.PriceChanges))
	for _, ch := range pc.PriceChanges {
		if ch.AssetID == "" {
			continue
		}
		obs = append(obs, Observation{
			AssetID: ch.AssetID,
			Bid:     ch.BestBid.Float(),
			Ask:     ch.BestAsk.Float(),
		})
	}
	return obs, nil
}

func decodeLastTradePrice(raw []byte) ([]Observation, error) {
	ltp := &LastTradePrice{}
	if err := json.Unmarshal(raw, ltp); err != nil {
		return nil, fmt.Errorf("couldn't parse last trade price event: %w", err)
	}
	if ltp.AssetID == "" {
		return nil, fmt.Errorf("last trade price event: %w", ErrMissingAssetID)
	}
	if ltp.Price == nil {
		return nil, fmt.Errorf("last trade price event: %w", ErrMissingPrice)
	}
	p := floatPtr(*ltp.Price)
	return []Observation{{AssetID: ltp.AssetID, Bid: p, Ask: p}}, nil
}

// Sink receives observations, typically the live price store.
type Sink interface {
	Update(assetID string, bid, ask *float64)
}

// Apply hands the observations of every decoded message to sink in order and
// returns how many observations were applied and how many messages were skipped.
func Apply(results []Result, sink Sink) (applied, skipped int) {
	for _, r := range results {
		if r.Skipped() {
			skipped++
			continue
		}
		for _, o := range r.Observations {
			sink.Update(o.AssetID, o.Bid, o.Ask)
			applied++
		}
	}
	return applied, skipped
}

func floatPtr(p price.Price) *float64 {
	f := p.Float64()
	return &f
}
