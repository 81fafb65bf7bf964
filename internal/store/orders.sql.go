package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertOrder = `-- name: InsertOrder :exec
INSERT INTO orders (
    id, token_id, order_type, side, amount_usd, limit_price, size, ok, message, exchange_order_id, created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
`

type InsertOrderParams struct {
	ID              pgtype.UUID
	TokenID         string
	OrderType       string
	Side            string
	AmountUsd       pgtype.Numeric
	LimitPrice      pgtype.Numeric
	Size            pgtype.Numeric
	Ok              bool
	Message         string
	ExchangeOrderID string
	CreatedAt       pgtype.Timestamptz
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) error {
	_, err := q.db.Exec(ctx, insertOrder,
		arg.ID,
		arg.TokenID,
		arg.OrderType,
		arg.Side,
		arg.AmountUsd,
		arg.LimitPrice,
		arg.Size,
		arg.Ok,
		arg.Message,
		arg.ExchangeOrderID,
		arg.CreatedAt,
	)
	return err
}

const listRecentOrders = `-- name: ListRecentOrders :many
SELECT id, token_id, order_type, side, amount_usd, limit_price, size, ok, message, exchange_order_id, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1
`

type Order struct {
	ID              pgtype.UUID
	TokenID         string
	OrderType       string
	Side            string
	AmountUsd       pgtype.Numeric
	LimitPrice      pgtype.Numeric
	Size            pgtype.Numeric
	Ok              bool
	Message         string
	ExchangeOrderID string
	CreatedAt       pgtype.Timestamptz
}

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listRecentOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var i Order
		if err := rows.Scan(
			&i.ID,
			&i.TokenID,
			&i.OrderType,
			&i.Side,
			&i.AmountUsd,
			&i.LimitPrice,
			&i.Size,
			&i.Ok,
			&i.Message,
			&i.ExchangeOrderID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
