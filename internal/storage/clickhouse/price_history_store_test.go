package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

func TestPriceHistoryStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	points := []*domain.PricePoint{
		{TokenURI: "https://arweave.net/tok-a", Mint: "MintA", PriceUSD: 1.5, PriceSOL: 0.01, Timestamp: base},
		{TokenURI: "https://arweave.net/tok-a", Mint: "MintA", PriceUSD: 2.5, PriceSOL: 0.02, Timestamp: base.Add(time.Hour)},
		{TokenURI: "https://arweave.net/tok-b", Mint: "MintB", PriceUSD: 9.0, PriceSOL: 0.05, Timestamp: base},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByTokenURI(ctx, "https://arweave.net/tok-a", base.Add(-time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "https://arweave.net/tok-a", got[0].TokenURI)
	assert.Equal(t, "MintA", got[0].Mint)
	assert.Equal(t, 1.5, got[0].PriceUSD)
	assert.Equal(t, 0.01, got[0].PriceSOL)
	assert.Equal(t, base.UnixMilli(), got[0].Timestamp.UnixMilli())
	assert.Equal(t, 2.5, got[1].PriceUSD)
	assert.Equal(t, base.Add(time.Hour).UnixMilli(), got[1].Timestamp.UnixMilli())
}

func TestPriceHistoryStore_GetByTokenURIRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var points []*domain.PricePoint
	for i := 0; i < 5; i++ {
		points = append(points, &domain.PricePoint{
			TokenURI:  "https://arweave.net/tok-range",
			Mint:      "MintR",
			PriceUSD:  float64(i + 1),
			PriceSOL:  float64(i+1) / 100,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Window bounds are inclusive on both ends.
	got, err := store.GetByTokenURI(ctx, "https://arweave.net/tok-range", base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2.0, got[0].PriceUSD)
	assert.Equal(t, 3.0, got[1].PriceUSD)
	assert.Equal(t, 4.0, got[2].PriceUSD)

	got, err = store.GetByTokenURI(ctx, "https://arweave.net/no-such-token", base, base.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPriceHistoryStore_InsertBulkValidation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, nil)
	require.NoError(t, err)

	err = store.InsertBulk(ctx, []*domain.PricePoint{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.PricePoint{
		{TokenURI: "", Mint: "MintX", PriceUSD: 1, Timestamp: time.Now()},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPriceHistoryStore_DuplicatesKept(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	point := &domain.PricePoint{
		TokenURI:  "https://arweave.net/tok-dup",
		Mint:      "MintD",
		PriceUSD:  3.0,
		PriceSOL:  0.03,
		Timestamp: ts,
	}

	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{point}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{point}))

	got, err := store.GetByTokenURI(ctx, "https://arweave.net/tok-dup", ts, ts)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
