package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/daszybak/fastbet/internal/order"
)

// RecordOrder journals one order attempt.
func (s *Store) RecordOrder(ctx context.Context, r order.Record) error {
	o := r.Order
	id := o.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	params := InsertOrderParams{
		ID:              pgtype.UUID{Bytes: id, Valid: true},
		TokenID:         o.TokenID,
		OrderType:       string(o.Type),
		Side:            o.Side,
		AmountUsd:       numeric(o.AmountUSD),
		Ok:              r.OK,
		Message:         r.Message,
		ExchangeOrderID: r.OrderID,
		CreatedAt:       pgtype.Timestamptz{Time: r.CreatedAt, Valid: true},
	}
	if o.IsLimit() {
		params.LimitPrice = numeric(o.Price)
		params.Size = numeric(o.Size)
	}

	if err := s.InsertOrder(ctx, params); err != nil {
		return fmt.Errorf("insert order %s: %w", id, err)
	}
	return nil
}

// RecentOrders returns the latest journaled attempts, newest first.
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]order.Record, error) {
	rows, err := s.ListRecentOrders(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}

	records := make([]order.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, order.Record{
			Order: order.Order{
				ID:        uuid.UUID(row.ID.Bytes),
				TokenID:   row.TokenID,
				Type:      order.Type(row.OrderType),
				Side:      row.Side,
				AmountUSD: fromNumeric(row.AmountUsd),
				Price:     fromNumeric(row.LimitPrice),
				Size:      fromNumeric(row.Size),
			},
			OK:        row.Ok,
			Message:   row.Message,
			OrderID:   row.ExchangeOrderID,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return records, nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil || n.NaN {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
