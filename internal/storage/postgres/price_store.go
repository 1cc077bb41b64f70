package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// PriceStore implements storage.PriceStore using PostgreSQL.
// The prices table is append-only: rows are never updated or deleted
// by the ingestion workflow, and is_latest is not demoted on insert.
type PriceStore struct {
	pool *Pool
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(pool *Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// Insert adds a single price observation.
func (s *PriceStore) Insert(ctx context.Context, p *domain.Price) error {
	if p == nil || p.TokenURI == "" || !p.HasPrice() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO prices (
			token_id, token_uri, price_usd, price_sol, trade_at, timestamp, is_latest
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		p.TokenID,
		p.TokenURI,
		p.PriceUSD,
		p.PriceSOL,
		p.TradeAt,
		p.Timestamp,
		p.IsLatest,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// InsertBulk adds multiple price observations in one round trip.
func (s *PriceStore) InsertBulk(ctx context.Context, prices []*domain.Price) error {
	if len(prices) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO prices (
			token_id, token_uri, price_usd, price_sol, trade_at, timestamp, is_latest
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, p := range prices {
		if p == nil || p.TokenURI == "" || !p.HasPrice() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query,
			p.TokenID,
			p.TokenURI,
			p.PriceUSD,
			p.PriceSOL,
			p.TradeAt,
			p.Timestamp,
			p.IsLatest,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range prices {
		if _, err := results.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price batch: %w", err)
		}
	}

	return nil
}

// GetByTokenURI retrieves observations for a token, newest first.
func (s *PriceStore) GetByTokenURI(ctx context.Context, uri string, limit int) ([]*domain.Price, error) {
	query := `
		SELECT id, token_id, token_uri, price_usd, price_sol, trade_at, timestamp, is_latest, created_at
		FROM prices
		WHERE token_uri = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, uri, limit)
	if err != nil {
		return nil, fmt.Errorf("get prices by token uri: %w", err)
	}
	defer rows.Close()

	var prices []*domain.Price
	for rows.Next() {
		var p domain.Price
		err := rows.Scan(
			&p.ID,
			&p.TokenID,
			&p.TokenURI,
			&p.PriceUSD,
			&p.PriceSOL,
			&p.TradeAt,
			&p.Timestamp,
			&p.IsLatest,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	return prices, nil
}
