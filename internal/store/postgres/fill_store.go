package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipredict/engine/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

const fillCols = `id, market_id, outcome, buy_order_id, sell_order_id,
	buyer, seller, price, quantity, notional,
	fee, platform_fee, creator_fee, executed_at`

// InsertBatch writes all fills from one matching or quick-buy invocation in a
// single batch. Fill ids are unique, so a replayed invocation is a no-op.
func (s *FillStore) InsertBatch(ctx context.Context, fills []domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO fills (
			id, market_id, outcome, buy_order_id, sell_order_id,
			buyer, seller, price, quantity, notional,
			fee, platform_fee, creator_fee, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`

	for _, f := range fills {
		batch.Queue(query,
			f.ID, f.MarketID, string(f.Outcome), f.BuyOrderID, f.SellOrderID,
			f.Buyer, f.Seller, f.Price, f.Quantity, f.Notional,
			f.Fee, f.PlatformFee, f.CreatorFee, f.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range fills {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert fill batch item %d: %w", i, err)
		}
	}
	return nil
}

func scanFill(row pgx.Row) (domain.Fill, error) {
	var f domain.Fill
	var outcome string
	err := row.Scan(
		&f.ID, &f.MarketID, &outcome, &f.BuyOrderID, &f.SellOrderID,
		&f.Buyer, &f.Seller, &f.Price, &f.Quantity, &f.Notional,
		&f.Fee, &f.PlatformFee, &f.CreatorFee, &f.ExecutedAt,
	)
	f.Outcome = domain.Outcome(outcome)
	return f, err
}

func (s *FillStore) list(ctx context.Context, where string, arg string, opts domain.ListOpts) ([]domain.Fill, error) {
	query := `SELECT ` + fillCols + ` FROM fills WHERE ` + where + ` ORDER BY executed_at DESC`
	args := []any{arg}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		f, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fills rows: %w", err)
	}
	return fills, nil
}

// ListByMarket returns fills in one market, newest first.
func (s *FillStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Fill, error) {
	return s.list(ctx, "market_id = $1", marketID, opts)
}

// ListByUser returns fills where the user was buyer or seller, newest first.
func (s *FillStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Fill, error) {
	return s.list(ctx, "(buyer = $1 OR seller = $1)", user, opts)
}

var _ domain.FillStore = (*FillStore)(nil)
