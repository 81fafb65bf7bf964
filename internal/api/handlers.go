package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/daszybak/fastbet/internal/board"
	"github.com/daszybak/fastbet/internal/order"
)

type marketsResponse struct {
	Events []board.Event `json:"events"`
	Count  int           `json:"count"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	events, err := s.discovery.Events(r.Context())
	if err != nil {
		s.log.Error("list events", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "couldn't load markets"})
		return
	}

	built := board.Merge(board.Build(events), s.feed)
	writeJSON(w, http.StatusOK, marketsResponse{Events: built, Count: len(built)})
}

type eventResponse struct {
	Event board.Event `json:"event"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	raw, err := s.discovery.Event(r.Context(), slug)
	if err != nil {
		s.log.Error("fetch event", "slug", slug, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "couldn't load event"})
		return
	}

	built := board.Build(raw)
	if len(built) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Event not found"})
		return
	}
	board.Merge(built[:1], s.feed)
	writeJSON(w, http.StatusOK, eventResponse{Event: built[0]})
}

func (s *Server) handlePrices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, board.Prices(s.feed.Quotes()))
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var bet order.Bet
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&bet)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, order.Result{Error: "Invalid request body"})
		return
	}
	if bet.TokenID == "" {
		writeJSON(w, http.StatusBadRequest, order.Result{Error: "Missing token_id"})
		return
	}

	res := s.orders.Execute(r.Context(), bet)
	if !res.OK {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type feedResponse struct {
	Running    bool   `json:"running"`
	State      string `json:"state"`
	Subscribed int    `json:"subscribed"`
	Quotes     int    `json:"quotes"`
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, feedResponse{
		Running:    s.feed.Running(),
		State:      s.feed.State().String(),
		Subscribed: len(s.feed.Subscribed()),
		Quotes:     len(s.feed.Quotes()),
	})
}

type orderRecord struct {
	ID        string `json:"id"`
	TokenID   string `json:"token_id"`
	Type      string `json:"order_type"`
	AmountUSD string `json:"amount_usd"`
	Price     string `json:"limit_price,omitempty"`
	Size      string `json:"size,omitempty"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	OrderID   string `json:"exchange_order_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	limit := defaultOrdersLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxOrdersLimit)
	}

	records, err := s.history.RecentOrders(r.Context(), limit)
	if err != nil {
		s.log.Error("list orders", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "couldn't list orders"})
		return
	}

	out := make([]orderRecord, 0, len(records))
	for _, rec := range records {
		o := orderRecord{
			ID:        rec.Order.ID.String(),
			TokenID:   rec.Order.TokenID,
			Type:      string(rec.Order.Type),
			AmountUSD: rec.Order.AmountUSD.String(),
			OK:        rec.OK,
			Message:   rec.Message,
			OrderID:   rec.OrderID,
			CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if rec.Order.IsLimit() {
			o.Price = rec.Order.Price.String()
			o.Size = rec.Order.Size.String()
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}
