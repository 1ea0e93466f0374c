// Package pgrepo is the durable Repository backed by Postgres via pgx.
package pgrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"clobengine/internal/domain"
	"clobengine/internal/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ port.Repository = (*Repo)(nil)

type Repo struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against dsn. Call Close when done.
func New(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("pgrepo: nil order")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO orders(id, client_id, symbol, side, type, price, original_quantity, remaining_quantity, status, sequence, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  remaining_quantity = EXCLUDED.remaining_quantity,
  status = EXCLUDED.status
`, o.ID, o.ClientID, o.Symbol, string(o.Side), string(o.Type),
		o.Price, o.OriginalQuantity, o.RemainingQuantity, string(o.Status), o.Sequence, o.Timestamp)
	return err
}

func (r *Repo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("pgrepo: nil trade")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO trades(id, symbol, price, quantity, sequence, aggressor_side, maker_order_id, taker_order_id, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.Symbol, t.Price, t.Quantity, t.Sequence, string(t.AggressorSide), t.MakerOrderID, t.TakerOrderID, t.Timestamp)
	return err
}

// LoadOpenOrders returns still-resting orders for a symbol ordered by
// sequence ascending, the persisted equivalent of price-time priority.
func (r *Repo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, client_id, symbol, side, type, price, original_quantity, remaining_quantity, status, sequence, created_at
FROM orders
WHERE symbol = $1 AND status IN ('PENDING', 'PARTIAL')
ORDER BY sequence ASC
`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var side, typ, status string
		if err := rows.Scan(&o.ID, &o.ClientID, &o.Symbol, &side, &typ, &o.Price,
			&o.OriginalQuantity, &o.RemainingQuantity, &status, &o.Sequence, &o.Timestamp); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Type = domain.OrderType(typ)
		o.Status = domain.OrderStatus(status)
		res = append(res, &o)
	}
	return res, rows.Err()
}

// SaveSnapshot persists the full resting-order state of symbol as JSONB,
// overwriting any previous snapshot for that symbol.
func (r *Repo) SaveSnapshot(ctx context.Context, snap *domain.BookSnapshot) error {
	if snap == nil {
		return errors.New("pgrepo: nil snapshot")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO book_snapshots(symbol, snapshot_json, created_at)
VALUES($1,$2,NOW())
ON CONFLICT (symbol) DO UPDATE SET snapshot_json = EXCLUDED.snapshot_json, created_at = NOW()
`, snap.Symbol, string(b))
	return err
}

func (r *Repo) LoadSnapshot(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	var data string
	err := r.pool.QueryRow(ctx, `SELECT snapshot_json FROM book_snapshots WHERE symbol = $1`, symbol).Scan(&data)
	if err != nil {
		return nil, domain.ErrSnapshotNotFound
	}
	var snap domain.BookSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSymbols returns distinct symbols present in the orders table.
func (r *Repo) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
