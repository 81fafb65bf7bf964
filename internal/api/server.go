// Package api serves the board, live prices and one-click bets as JSON.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daszybak/fastbet/internal/feed"
	"github.com/daszybak/fastbet/internal/order"
	"github.com/daszybak/fastbet/internal/polymarket/gamma"
)

const (
	maxBodyBytes       = 1 << 16
	defaultOrdersLimit = 50
	maxOrdersLimit     = 500
)

// Discovery lists the polled sports events.
type Discovery interface {
	Events(ctx context.Context) ([]*gamma.Event, error)
	Event(ctx context.Context, slug string) ([]*gamma.Event, error)
}

// Feed is the read side of the live price feed.
type Feed interface {
	Quotes() map[string]feed.Quote
	Running() bool
	Subscribed() []string
	State() feed.State
}

type Executor interface {
	Execute(ctx context.Context, bet order.Bet) order.Result
}

// OrderHistory lists journaled order attempts.
type OrderHistory interface {
	RecentOrders(ctx context.Context, limit int) ([]order.Record, error)
}

type Server struct {
	discovery Discovery
	feed      Feed
	orders    Executor
	history   OrderHistory
	log       *slog.Logger

	mux      *http.ServeMux
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New wires the routes. history may be nil, which disables /api/orders.
// Metrics are registered on reg and served from gatherer when both are set.
func New(discovery Discovery, f Feed, orders Executor, history OrderHistory, reg prometheus.Registerer, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	s := &Server{
		discovery: discovery,
		feed:      f,
		orders:    orders,
		history:   history,
		log:       log.With("component", "api"),
		mux:       http.NewServeMux(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fastbet",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fastbet",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(s.requests, s.duration)
	}

	s.handle("GET /api/markets", s.handleMarkets)
	s.handle("GET /api/event/{slug}", s.handleEvent)
	s.handle("GET /api/prices", s.handlePrices)
	s.handle("POST /api/place-bet", s.handlePlaceBet)
	s.handle("GET /api/feed", s.handleFeed)
	if history != nil {
		s.handle("GET /api/orders", s.handleOrders)
	}
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		took := time.Since(start)
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.duration.WithLabelValues(route).Observe(took.Seconds())
		s.log.Debug("request", "route", route, "status", rec.status, "took", took)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}
