package domain

// MarketData is the per-token market snapshot returned by the data
// source for the refresh pass. All fields are optional; a snapshot with
// nothing set is treated as "source knows nothing about this mint".
type MarketData struct {
	Mint        string
	Name        *string
	Symbol      *string
	MarketCap   *float64
	TotalSupply *float64
}

// Empty reports whether the snapshot carries no usable field.
func (m *MarketData) Empty() bool {
	return m == nil || (m.Name == nil && m.Symbol == nil && m.MarketCap == nil && m.TotalSupply == nil)
}
