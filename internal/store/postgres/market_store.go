package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `market_id, title, description, option_a_label, option_b_label,
	deadline, threshold, status, metric_type,
	total_staked, option_a_stakes, option_b_stakes,
	created_at, updated_at`

// Create inserts a new market row. It maps a primary-key conflict to
// domain.ErrAlreadyExists.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			market_id, title, description, option_a_label, option_b_label,
			deadline, threshold, status, metric_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Title, m.Description, m.OptionA, m.OptionB,
		m.Deadline, m.Threshold, string(m.Status), m.MetricType,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("postgres: create market %s: %w", m.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// Upsert inserts the market or, on conflict, updates only the fields that
// operators may amend before a pool goes on-chain. Status and the stake
// counters are never touched by a conflicting create.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			market_id, title, description, option_a_label, option_b_label,
			deadline, threshold, status, metric_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (market_id) DO UPDATE SET
			deadline    = EXCLUDED.deadline,
			threshold   = EXCLUDED.threshold,
			metric_type = EXCLUDED.metric_type,
			description = EXCLUDED.description,
			updated_at  = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Title, m.Description, m.OptionA, m.OptionB,
		m.Deadline, m.Threshold, string(m.Status), m.MetricType,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	var totalStaked, optionA, optionB int64
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.OptionA, &m.OptionB,
		&m.Deadline, &m.Threshold, &status, &m.MetricType,
		&totalStaked, &optionA, &optionB,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.TotalStaked = uint64(totalStaked)
	m.OptionAStakes = uint64(optionA)
	m.OptionBStakes = uint64(optionB)
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE market_id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns all markets ordered by creation time, newest first.
func (s *MarketStore) List(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

// ListByStatus returns all markets currently in the given lifecycle status,
// oldest first so the worker advances them in creation order.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets WHERE status = $1 ORDER BY created_at ASC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return markets, nil
}

// SetStatus updates a market's lifecycle status. The store does not enforce
// transition validity; callers own the guard table.
func (s *MarketStore) SetStatus(ctx context.Context, id string, status domain.MarketStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET status = $1, updated_at = NOW() WHERE market_id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: set status %s for market %s: %w", status, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: set status for market %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateStats writes the ledger-observed stake counters for a market.
func (s *MarketStore) UpdateStats(ctx context.Context, id string, stats domain.PoolStats) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET total_staked = $1, option_a_stakes = $2, option_b_stakes = $3, updated_at = NOW()
		 WHERE market_id = $4`,
		int64(stats.TotalStaked), int64(stats.OptionAStakes), int64(stats.OptionBStakes), id)
	if err != nil {
		return fmt.Errorf("postgres: update stats for market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update stats for market %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
