package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

func TestTokenStore_GetByIDAndURI(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seeded := createTestToken(t, ctx, pool, "token-get-uri", ptr("MintAddr1"))

	store := NewTokenStore(pool)

	byID, err := store.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.URI, byID.URI)
	assert.NotNil(t, byID.Address)
	assert.Equal(t, "MintAddr1", *byID.Address)
	assert.NotZero(t, byID.CreatedAt)

	byURI, err := store.GetByURI(ctx, "token-get-uri")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byURI.ID)
}

func TestTokenStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	_, err := store.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByURI(ctx, "no-such-uri")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_GetByURIs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	createTestToken(t, ctx, pool, "uris-a", nil)
	createTestToken(t, ctx, pool, "uris-b", nil)
	createTestToken(t, ctx, pool, "uris-c", nil)

	store := NewTokenStore(pool)

	tokens, err := store.GetByURIs(ctx, []string{"uris-a", "missing", "uris-c"})
	require.NoError(t, err)
	assert.Len(t, tokens, 2, "missing URIs are silently dropped")

	tokens, err = store.GetByURIs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestTokenStore_Patch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seeded := createTestToken(t, ctx, pool, "patch-uri", ptr("MintAddr2"))

	store := NewTokenStore(pool)

	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := store.Patch(ctx, seeded.ID, domain.TokenPatch{
		MarketCap:   ptr(42000.0),
		TotalSupply: ptr(1e9),
		LastUpdated: when,
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MarketCap)
	assert.InDelta(t, 42000.0, *got.MarketCap, 0.0001)
	require.NotNil(t, got.TotalSupply)
	assert.InDelta(t, 1e9, *got.TotalSupply, 0.0001)
	require.NotNil(t, got.LastUpdated)
	assert.True(t, got.LastUpdated.Equal(when))
	// Nil patch fields keep the seeded values.
	require.NotNil(t, got.Name)
	assert.Equal(t, "Test Token", *got.Name)
	require.NotNil(t, got.Symbol)
	assert.Equal(t, "TST", *got.Symbol)
}

func TestTokenStore_PatchNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	err := store.Patch(ctx, 999999, domain.TokenPatch{Name: ptr("ghost")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_SelectRefreshCandidates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)
	now := time.Now().UTC()
	staleBefore := now.Add(-24 * time.Hour)

	// No address: excluded regardless of staleness.
	createTestToken(t, ctx, pool, "cand-no-addr", nil)

	// Missing total_supply, updated 2h ago: candidate.
	missing := createTestToken(t, ctx, pool, "cand-missing-supply", ptr("Mint1"))
	require.NoError(t, store.Patch(ctx, missing.ID, domain.TokenPatch{
		MarketCap: ptr(1000.0), LastUpdated: now.Add(-2 * time.Hour),
	}))

	// All fields present, updated 1h ago: excluded.
	fresh := createTestToken(t, ctx, pool, "cand-fresh", ptr("Mint2"))
	require.NoError(t, store.Patch(ctx, fresh.ID, domain.TokenPatch{
		MarketCap: ptr(1000.0), TotalSupply: ptr(1e9), LastUpdated: now.Add(-1 * time.Hour),
	}))

	// All fields present, updated 25h ago: candidate.
	stale := createTestToken(t, ctx, pool, "cand-stale", ptr("Mint3"))
	require.NoError(t, store.Patch(ctx, stale.ID, domain.TokenPatch{
		MarketCap: ptr(1000.0), TotalSupply: ptr(1e9), LastUpdated: now.Add(-25 * time.Hour),
	}))

	// Never refreshed: candidate, ordered before dated rows.
	createTestToken(t, ctx, pool, "cand-never", ptr("Mint4"))

	candidates, err := store.SelectRefreshCandidates(ctx, staleBefore, 50)
	require.NoError(t, err)

	uris := make([]string, len(candidates))
	for i, c := range candidates {
		uris[i] = c.URI
	}
	assert.Len(t, uris, 3)
	assert.Equal(t, "cand-never", uris[0], "NULL last_updated sorts first")
	assert.Contains(t, uris, "cand-missing-supply")
	assert.Contains(t, uris, "cand-stale")
	assert.NotContains(t, uris, "cand-no-addr")
	assert.NotContains(t, uris, "cand-fresh")
}

func TestTokenStore_SelectRefreshCandidatesLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	for _, uri := range []string{"lim-a", "lim-b", "lim-c"} {
		createTestToken(t, ctx, pool, uri, ptr("Mint-"+uri))
	}

	candidates, err := store.SelectRefreshCandidates(ctx, time.Now().UTC(), 2)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestTokenStore_GetRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	createTestToken(t, ctx, pool, "recent-a", nil)
	createTestToken(t, ctx, pool, "recent-b", nil)
	createTestToken(t, ctx, pool, "recent-c", nil)

	tokens, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}
