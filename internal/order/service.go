package order

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultAmountUSD = 10.0
	DefaultMinUSD    = 1.0
	DefaultMaxUSD    = 100.0
	DefaultSlippage  = 0.01
)

var (
	// minShares is the smallest limit order the exchange accepts.
	minShares = decimal.NewFromInt(5)
	maxPrice  = decimal.RequireFromString("0.99")
	hundred   = decimal.NewFromInt(100)
)

type Config struct {
	DefaultAmountUSD float64
	MinOrderUSD      float64
	MaxOrderUSD      float64
	// Slippage is added to the clicked price of limit orders.
	Slippage float64
	// UseMarketOrder sends every bet as a market order, even with a price.
	UseMarketOrder bool
}

type Service struct {
	cfg     Config
	gateway Gateway
	journal Journal
	log     *slog.Logger
	now     func() time.Time
}

// NewService builds the bet executor. journal may be nil.
func NewService(cfg Config, gateway Gateway, journal Journal, log *slog.Logger) *Service {
	if cfg.DefaultAmountUSD <= 0 {
		cfg.DefaultAmountUSD = DefaultAmountUSD
	}
	if cfg.MinOrderUSD <= 0 {
		cfg.MinOrderUSD = DefaultMinUSD
	}
	if cfg.MaxOrderUSD <= 0 {
		cfg.MaxOrderUSD = DefaultMaxUSD
	}
	if cfg.MaxOrderUSD < cfg.MinOrderUSD {
		cfg.MaxOrderUSD = cfg.MinOrderUSD
	}
	if cfg.Slippage < 0 {
		cfg.Slippage = 0
	}
	return &Service{
		cfg:     cfg,
		gateway: gateway,
		journal: journal,
		log:     log.With("component", "order_service"),
		now:     time.Now,
	}
}

// Execute places a buy for bet. A usable price makes it a limit order
// unless market orders are forced; everything else is a market order.
// Failures are reported in the result, never as an error.
func (s *Service) Execute(ctx context.Context, bet Bet) Result {
	if bet.TokenID == "" {
		return Result{Error: "Missing token_id"}
	}

	amount := s.cfg.DefaultAmountUSD
	if bet.AmountUSD != nil && !math.IsNaN(*bet.AmountUSD) && !math.IsInf(*bet.AmountUSD, 0) {
		amount = *bet.AmountUSD
	}

	if bet.Price != nil && *bet.Price > 0 && *bet.Price < 1 && !s.cfg.UseMarketOrder {
		return s.limit(ctx, bet.TokenID, amount, *bet.Price)
	}
	return s.market(ctx, bet.TokenID, amount)
}

func (s *Service) clamp(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(min(max(amount, s.cfg.MinOrderUSD), s.cfg.MaxOrderUSD)).Round(2)
}

func (s *Service) market(ctx context.Context, tokenID string, amount float64) Result {
	o := Order{
		ID:        uuid.New(),
		TokenID:   tokenID,
		Type:      FillAndKill,
		Side:      SideBuy,
		AmountUSD: s.clamp(amount),
	}
	return s.place(ctx, o, fmt.Sprintf("Order placed: $%s", o.AmountUSD.StringFixed(2)))
}

func (s *Service) limit(ctx context.Context, tokenID string, amount, clicked float64) Result {
	if clicked <= 0 || clicked >= 1 {
		return Result{Error: fmt.Sprintf("Invalid price %v; must be 0 < price < 1", clicked)}
	}

	slipped := decimal.Min(decimal.NewFromFloat(clicked).Add(decimal.NewFromFloat(s.cfg.Slippage)), maxPrice)
	p := slipped.Round(2)
	if !p.IsPositive() {
		return Result{Error: fmt.Sprintf("Invalid price %v; rounds to 0", clicked)}
	}

	amt := s.clamp(amount)
	size := decimal.Max(amt.Div(slipped).Round(2), minShares)

	o := Order{
		ID:        uuid.New(),
		TokenID:   tokenID,
		Type:      GoodTilCancelled,
		Side:      SideBuy,
		AmountUSD: amt,
		Price:     p,
		Size:      size,
	}
	return s.place(ctx, o, fmt.Sprintf("Limit order: $%s @ %s¢", amt.StringFixed(2), p.Mul(hundred).StringFixed(0)))
}

func (s *Service) place(ctx context.Context, o Order, message string) Result {
	log := s.log.With("order_id", o.ID, "token_id", o.TokenID, "type", o.Type)

	var res Result
	placement, err := s.gateway.PlaceOrder(ctx, o)
	if err != nil {
		log.Warn("place order", "error", err)
		res = Result{Error: err.Error()}
	} else {
		log.Info("order placed", "amount_usd", o.AmountUSD, "price", o.Price, "size", o.Size, "exchange_id", placement.OrderID)
		res = Result{OK: true, Message: message, OrderID: placement.OrderID}
	}

	s.record(ctx, o, res)
	return res
}

func (s *Service) record(ctx context.Context, o Order, res Result) {
	if s.journal == nil {
		return
	}
	msg := res.Message
	if !res.OK {
		msg = res.Error
	}
	// The audit row outlives the request.
	err := s.journal.RecordOrder(context.WithoutCancel(ctx), Record{
		Order:     o,
		OK:        res.OK,
		Message:   msg,
		OrderID:   res.OrderID,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.log.Error("journal order", "order_id", o.ID, "error", err)
	}
}
