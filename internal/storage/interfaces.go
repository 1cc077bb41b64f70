package storage

import (
	"context"
	"time"

	"memecoin-tracker/internal/domain"
)

// TokenStore provides access to the tokens table. The ingestion
// workflow never creates token rows; it resolves and patches them.
type TokenStore interface {
	// GetByID retrieves a token by primary key. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Token, error)

	// GetByURI retrieves a token by its metadata URI. Returns ErrNotFound if not exists.
	GetByURI(ctx context.Context, uri string) (*domain.Token, error)

	// GetByURIs retrieves all tokens matching the given URIs in one query.
	// URIs without a matching row are simply absent from the result.
	GetByURIs(ctx context.Context, uris []string) ([]*domain.Token, error)

	// GetRecent retrieves the most recently created tokens, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.Token, error)

	// Patch applies a best-effort partial metadata update to a token row.
	// Nil patch fields are left untouched; LastUpdated is always written.
	Patch(ctx context.Context, id int64, patch domain.TokenPatch) error

	// SelectRefreshCandidates returns tokens needing a market-data refresh:
	// address present and (market_cap missing, total_supply missing, or
	// last_updated older than staleBefore). Capped at limit rows.
	SelectRefreshCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]*domain.Token, error)
}

// PriceStore provides access to the prices table. Append-only.
type PriceStore interface {
	// Insert adds a single price observation.
	Insert(ctx context.Context, p *domain.Price) error

	// InsertBulk adds multiple price observations in one round trip.
	InsertBulk(ctx context.Context, prices []*domain.Price) error

	// GetByTokenURI retrieves observations for a token, newest first.
	GetByTokenURI(ctx context.Context, uri string, limit int) ([]*domain.Price, error)
}

// PriceHistoryStore is the analytics timeseries for price
// observations. Writes are best-effort from the pipeline's point of
// view; reads back the dashboard's history charts.
type PriceHistoryStore interface {
	// InsertBulk appends points to the analytics timeseries.
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByTokenURI retrieves points for a token within [start, end],
	// ordered by timestamp ascending.
	GetByTokenURI(ctx context.Context, uri string, start, end time.Time) ([]*domain.PricePoint, error)
}
