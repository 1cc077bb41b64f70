package domain

import "time"

// Price is an append-only price observation for a token.
// Corresponds to the prices table in PostgreSQL. Rows are never mutated
// or deleted by the ingestion workflow.
type Price struct {
	ID        int64     // BIGSERIAL primary key
	TokenID   int64     // FK to tokens
	TokenURI  string    // denormalized copy of the join key
	PriceUSD  *float64  // USD price (at least one of USD/SOL required)
	PriceSOL  *float64  // SOL price
	TradeAt   time.Time // source-reported trade time
	Timestamp time.Time // block time
	IsLatest  bool      // set true on every insert; prior rows are not demoted
	CreatedAt time.Time // record creation timestamp
}

// HasPrice reports whether at least one of the price fields is set.
func (p *Price) HasPrice() bool {
	return p.PriceUSD != nil || p.PriceSOL != nil
}

// PricePoint is the analytics-store projection of a Price observation.
// Corresponds to the price_history table in ClickHouse.
type PricePoint struct {
	TokenURI  string
	Mint      string
	PriceUSD  float64
	PriceSOL  float64
	Timestamp time.Time
}
