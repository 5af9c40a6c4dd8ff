package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipredict/engine/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `user_id, market_id,
	yes_tokens_bought, yes_tokens_sold, no_tokens_bought, no_tokens_sold,
	total_deposited, total_withdrawn, claimed, created_at, updated_at`

// Upsert inserts or updates a position keyed by (user, market).
func (s *PositionStore) Upsert(ctx context.Context, pos domain.UserPosition) error {
	const query = `
		INSERT INTO positions (
			user_id, market_id,
			yes_tokens_bought, yes_tokens_sold, no_tokens_bought, no_tokens_sold,
			total_deposited, total_withdrawn, claimed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, market_id) DO UPDATE SET
			yes_tokens_bought = EXCLUDED.yes_tokens_bought,
			yes_tokens_sold   = EXCLUDED.yes_tokens_sold,
			no_tokens_bought  = EXCLUDED.no_tokens_bought,
			no_tokens_sold    = EXCLUDED.no_tokens_sold,
			total_deposited   = EXCLUDED.total_deposited,
			total_withdrawn   = EXCLUDED.total_withdrawn,
			claimed           = EXCLUDED.claimed,
			updated_at        = NOW()`

	_, err := s.pool.Exec(ctx, query,
		pos.User, pos.MarketID,
		pos.YesTokensBought, pos.YesTokensSold, pos.NoTokensBought, pos.NoTokensSold,
		pos.TotalDeposited, pos.TotalWithdrawn, pos.Claimed, pos.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s/%s: %w", pos.User, pos.MarketID, err)
	}
	return nil
}

func scanPosition(row pgx.Row) (domain.UserPosition, error) {
	var p domain.UserPosition
	err := row.Scan(
		&p.User, &p.MarketID,
		&p.YesTokensBought, &p.YesTokensSold, &p.NoTokensBought, &p.NoTokensSold,
		&p.TotalDeposited, &p.TotalWithdrawn, &p.Claimed, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Get retrieves one position by its composite key.
func (s *PositionStore) Get(ctx context.Context, user, marketID string) (domain.UserPosition, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE user_id = $1 AND market_id = $2`,
		user, marketID)
	p, err := scanPosition(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserPosition{}, domain.ErrNotFound
		}
		return domain.UserPosition{}, fmt.Errorf("postgres: get position %s/%s: %w", user, marketID, err)
	}
	return p, nil
}

func (s *PositionStore) listBy(ctx context.Context, col, value string, opts domain.ListOpts) ([]domain.UserPosition, error) {
	query := `SELECT ` + positionCols + ` FROM positions WHERE ` + col + ` = $1 ORDER BY updated_at DESC`
	args := []any{value}
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
		return nil, fmt.Errorf("postgres: list positions by %s: %w", col, err)
	}
	defer rows.Close()

	var positions []domain.UserPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}

// ListByUser returns all positions held by one user.
func (s *PositionStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.UserPosition, error) {
	return s.listBy(ctx, "user_id", user, opts)
}

// ListByMarket returns all positions in one market.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.UserPosition, error) {
	return s.listBy(ctx, "market_id", marketID, opts)
}

var _ domain.PositionStore = (*PositionStore)(nil)
