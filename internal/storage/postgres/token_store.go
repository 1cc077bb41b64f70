package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `id, uri, address, name, symbol, market_cap, total_supply, last_updated, created_at`

// GetByID retrieves a token by primary key. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, id int64) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetByURI retrieves a token by its metadata URI. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByURI(ctx context.Context, uri string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE uri = $1`

	row := s.pool.QueryRow(ctx, query, uri)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by uri: %w", err)
	}
	return t, nil
}

// GetByURIs retrieves all tokens matching the given URIs in one query.
func (s *TokenStore) GetByURIs(ctx context.Context, uris []string) ([]*domain.Token, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE uri = ANY($1)`

	rows, err := s.pool.Query(ctx, query, uris)
	if err != nil {
		return nil, fmt.Errorf("get tokens by uris: %w", err)
	}
	defer rows.Close()

	return collectTokens(rows)
}

// GetRecent retrieves the most recently created tokens, newest first.
func (s *TokenStore) GetRecent(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent tokens: %w", err)
	}
	defer rows.Close()

	return collectTokens(rows)
}

// Patch applies a best-effort partial metadata update to a token row.
// Nil patch fields keep the current column value; last_updated is
// always advanced.
func (s *TokenStore) Patch(ctx context.Context, id int64, patch domain.TokenPatch) error {
	query := `
		UPDATE tokens SET
			name = COALESCE($2, name),
			symbol = COALESCE($3, symbol),
			market_cap = COALESCE($4, market_cap),
			total_supply = COALESCE($5, total_supply),
			last_updated = $6
		WHERE id = $1
	`

	lastUpdated := patch.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, query,
		id,
		patch.Name,
		patch.Symbol,
		patch.MarketCap,
		patch.TotalSupply,
		lastUpdated,
	)
	if err != nil {
		return fmt.Errorf("patch token %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SelectRefreshCandidates returns tokens needing a market-data refresh.
// A candidate has a known address and either a missing market field or
// a last_updated older than staleBefore.
func (s *TokenStore) SelectRefreshCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE address IS NOT NULL
		  AND (market_cap IS NULL
		       OR total_supply IS NULL
		       OR last_updated IS NULL
		       OR last_updated < $1)
		ORDER BY last_updated ASC NULLS FIRST
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("select refresh candidates: %w", err)
	}
	defer rows.Close()

	return collectTokens(rows)
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token

	err := row.Scan(
		&t.ID,
		&t.URI,
		&t.Address,
		&t.Name,
		&t.Symbol,
		&t.MarketCap,
		&t.TotalSupply,
		&t.LastUpdated,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// collectTokens drains rows into a slice of tokens.
func collectTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}
