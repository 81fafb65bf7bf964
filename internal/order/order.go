// Package order turns one-click bets into CLOB buy orders.
package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	// FillAndKill spends an amount at the best available prices and cancels the rest.
	FillAndKill Type = "FAK"
	// GoodTilCancelled rests a limit order on the book.
	GoodTilCancelled Type = "GTC"
)

const SideBuy = "BUY"

// Order is what the gateway is asked to place. Market orders carry
// AmountUSD; limit orders carry Price and Size in shares.
type Order struct {
	ID        uuid.UUID
	TokenID   string
	Type      Type
	Side      string
	AmountUSD decimal.Decimal
	Price     decimal.Decimal
	Size      decimal.Decimal
}

func (o Order) IsLimit() bool {
	return o.Type == GoodTilCancelled
}

// Placement is the exchange's answer to an accepted order.
type Placement struct {
	OrderID string
	Status  string
}

type Gateway interface {
	PlaceOrder(ctx context.Context, o Order) (Placement, error)
}

// Record is one journaled order attempt.
type Record struct {
	Order     Order
	OK        bool
	Message   string
	OrderID   string
	CreatedAt time.Time
}

// Journal keeps an audit trail of order attempts.
type Journal interface {
	RecordOrder(ctx context.Context, r Record) error
}

// Bet is a click on an outcome button. Nil fields take the configured defaults.
type Bet struct {
	TokenID   string   `json:"token_id"`
	AmountUSD *float64 `json:"amount,omitempty"`
	Price     *float64 `json:"price,omitempty"`
}

type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}
