package clickhouse

import (
	"context"
	"fmt"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using
// ClickHouse. The table is an analytics side-channel for the dashboard;
// the pipeline treats writes here as best-effort.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// InsertBulk appends points to the price_history timeseries.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (
			token_uri, mint, price_usd, price_sol, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if p == nil || p.TokenURI == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			p.TokenURI, p.Mint, p.PriceUSD, p.PriceSOL,
			uint64(p.Timestamp.UnixMilli()),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenURI retrieves points for a token within [start, end], ordered ascending.
func (s *PriceHistoryStore) GetByTokenURI(ctx context.Context, uri string, start, end time.Time) ([]*domain.PricePoint, error) {
	query := `
		SELECT token_uri, mint, price_usd, price_sol, timestamp_ms
		FROM price_history
		WHERE token_uri = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uri, uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var tsMs uint64
		if err := rows.Scan(&p.TokenURI, &p.Mint, &p.PriceUSD, &p.PriceSOL, &tsMs); err != nil {
			return nil, fmt.Errorf("scan price history point: %w", err)
		}
		p.Timestamp = time.UnixMilli(int64(tsMs)).UTC()
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history: %w", err)
	}

	return points, nil
}
