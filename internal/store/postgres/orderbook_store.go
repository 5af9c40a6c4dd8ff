package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipredict/engine/internal/domain"
)

// OrderBookStore persists whole order book records as JSONB, one row per
// market. Books are small (bounded per side) and always read and written as a
// unit, so a document column beats a per-order table here.
type OrderBookStore struct {
	pool *pgxpool.Pool
}

// NewOrderBookStore creates a new OrderBookStore backed by the given pool.
func NewOrderBookStore(pool *pgxpool.Pool) *OrderBookStore {
	return &OrderBookStore{pool: pool}
}

// Save upserts the book record for its market.
func (s *OrderBookStore) Save(ctx context.Context, record domain.OrderBookRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("postgres: marshal order book %s: %w", record.MarketID, err)
	}

	const query = `
		INSERT INTO order_books (market_id, next_order_id, book, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			next_order_id = EXCLUDED.next_order_id,
			book          = EXCLUDED.book,
			updated_at    = NOW()`

	if _, err := s.pool.Exec(ctx, query, record.MarketID, record.NextOrderID, data); err != nil {
		return fmt.Errorf("postgres: save order book %s: %w", record.MarketID, err)
	}
	return nil
}

// Load reads the book record for a market.
func (s *OrderBookStore) Load(ctx context.Context, marketID string) (domain.OrderBookRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT book FROM order_books WHERE market_id = $1`, marketID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.OrderBookRecord{}, domain.ErrNotFound
		}
		return domain.OrderBookRecord{}, fmt.Errorf("postgres: load order book %s: %w", marketID, err)
	}

	var record domain.OrderBookRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.OrderBookRecord{}, fmt.Errorf("postgres: unmarshal order book %s: %w", marketID, err)
	}
	return record, nil
}

var _ domain.OrderBookStore = (*OrderBookStore)(nil)
