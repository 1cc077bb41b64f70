package ingest

import (
	"strings"

	"memecoin-tracker/internal/bitquery"
)

// stripNUL removes embedded NUL characters. Postgres text columns
// reject NUL bytes, and some on-chain metadata carries them.
func stripNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// sanitizeTrade returns the trade with all string fields NUL-stripped.
func sanitizeTrade(t bitquery.Trade) bitquery.Trade {
	t.URI = stripNUL(t.URI)
	t.Mint = stripNUL(t.Mint)
	t.Name = stripNUL(t.Name)
	t.Symbol = stripNUL(t.Symbol)
	return t
}
