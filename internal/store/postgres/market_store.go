package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipredict/engine/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, creator, name, description,
	yes_token_id, no_token_id, vault_id, yes_escrow_id, no_escrow_id,
	opening_time, closing_time, resolution_time,
	status, resolution,
	total_yes_tokens, total_no_tokens, total_deposited, total_volume, total_fees,
	created_at, updated_at`

// Upsert inserts or updates a single market.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, name, description,
			yes_token_id, no_token_id, vault_id, yes_escrow_id, no_escrow_id,
			opening_time, closing_time, resolution_time,
			status, resolution,
			total_yes_tokens, total_no_tokens, total_deposited, total_volume, total_fees,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12,
			$13, $14,
			$15, $16, $17, $18, $19,
			$20, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status           = EXCLUDED.status,
			resolution       = EXCLUDED.resolution,
			total_yes_tokens = EXCLUDED.total_yes_tokens,
			total_no_tokens  = EXCLUDED.total_no_tokens,
			total_deposited  = EXCLUDED.total_deposited,
			total_volume     = EXCLUDED.total_volume,
			total_fees       = EXCLUDED.total_fees,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.Name, m.Description,
		m.YesTokenID, m.NoTokenID, m.VaultID, m.YesEscrowID, m.NoEscrowID,
		m.OpeningTime, m.ClosingTime, m.ResolutionTime,
		string(m.Status), string(m.Resolution),
		m.TotalYesTokens, m.TotalNoTokens, m.TotalDeposited, m.TotalVolume, m.TotalFees,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status, resolution string
	err := row.Scan(
		&m.ID, &m.Creator, &m.Name, &m.Description,
		&m.YesTokenID, &m.NoTokenID, &m.VaultID, &m.YesEscrowID, &m.NoEscrowID,
		&m.OpeningTime, &m.ClosingTime, &m.ResolutionTime,
		&status, &resolution,
		&m.TotalYesTokens, &m.TotalNoTokens, &m.TotalDeposited, &m.TotalVolume, &m.TotalFees,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.Resolution = domain.Resolution(resolution)
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

func (s *MarketStore) list(ctx context.Context, where string, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets` + where
	args := []any{}
	argIdx := 1

	joiner := " WHERE"
	if where != "" {
		joiner = " AND"
	}
	if opts.Since != nil {
		query += fmt.Sprintf("%s created_at >= $%d", joiner, argIdx)
		args = append(args, *opts.Since)
		argIdx++
		joiner = " AND"
	}
	if opts.Until != nil {
		query += fmt.Sprintf("%s created_at <= $%d", joiner, argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// List returns markets of any status, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, "", opts)
}

// ListActive returns markets currently accepting orders.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, " WHERE status = 'active'", opts)
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
