package domain

import "time"

// Token represents one tracked on-chain asset.
// Corresponds to the tokens table in PostgreSQL.
type Token struct {
	ID          int64      // BIGSERIAL primary key
	URI         string     // metadata URI, unique join key for price records
	Address     *string    // on-chain mint address (nullable until known)
	Name        *string    // token name (nullable, filled opportunistically)
	Symbol      *string    // token symbol (nullable, filled opportunistically)
	MarketCap   *float64   // market cap in USD (nullable, refreshed periodically)
	TotalSupply *float64   // total supply (nullable, refreshed periodically)
	LastUpdated *time.Time // last successful metadata or market-data refresh
	CreatedAt   time.Time  // record creation timestamp
}

// TokenPatch is a best-effort partial update of token metadata.
// Nil fields are left untouched.
type TokenPatch struct {
	Name        *string
	Symbol      *string
	MarketCap   *float64
	TotalSupply *float64
	LastUpdated time.Time
}

// Empty reports whether the patch carries no field at all.
func (p TokenPatch) Empty() bool {
	return p.Name == nil && p.Symbol == nil && p.MarketCap == nil && p.TotalSupply == nil
}
