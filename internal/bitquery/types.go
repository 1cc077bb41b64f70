package bitquery

import (
	"encoding/json"
	"time"

	"memecoin-tracker/internal/domain"
)

// TokenCreation is one validated record from the new-token feed.
type TokenCreation struct {
	BlockTime time.Time
	Signature string
	Accounts  []string
}

// Trade is one validated record from the price feed.
type Trade struct {
	BlockTime time.Time
	URI       string
	Mint      string
	Name      string
	Symbol    string
	PriceUSD  *float64
	PriceSOL  *float64
}

// TokenFeedResult is the outcome of one new-token feed fetch.
type TokenFeedResult struct {
	Raw     []byte // verbatim response body, for archiving
	Records []TokenCreation
}

// PriceFeedResult is the outcome of one price feed fetch.
type PriceFeedResult struct {
	Raw    []byte
	Trades []Trade
}

// envelope is the outermost GraphQL response shape.
type envelope struct {
	Data   json.RawMessage    `json:"data"`
	Errors []graphQLErrorItem `json:"errors"`
}

type graphQLErrorItem struct {
	Message string `json:"message"`
}

// solanaData is the data.Solana level; each feed field stays raw so a
// missing field is distinguishable from an empty array.
type solanaData struct {
	Solana *struct {
		Instructions       json.RawMessage `json:"Instructions"`
		DEXTrades          json.RawMessage `json:"DEXTrades"`
		TokenSupplyUpdates json.RawMessage `json:"TokenSupplyUpdates"`
	} `json:"Solana"`
}

// Raw wire records, converted to the validated types above.

type rawInstruction struct {
	Block struct {
		Time string `json:"Time"`
	} `json:"Block"`
	Transaction struct {
		Signature string `json:"Signature"`
	} `json:"Transaction"`
	Instruction struct {
		Accounts []struct {
			Address string `json:"Address"`
		} `json:"Accounts"`
	} `json:"Instruction"`
}

type rawTrade struct {
	Block struct {
		Time string `json:"Time"`
	} `json:"Block"`
	Trade struct {
		Buy struct {
			Price      *float64 `json:"Price"`
			PriceInUSD *float64 `json:"PriceInUSD"`
			Currency   struct {
				Uri         string `json:"Uri"`
				MintAddress string `json:"MintAddress"`
				Name        string `json:"Name"`
				Symbol      string `json:"Symbol"`
			} `json:"Currency"`
		} `json:"Buy"`
	} `json:"Trade"`
}

type rawSupplyUpdate struct {
	TokenSupplyUpdate struct {
		PostBalance      *float64 `json:"PostBalance"`
		PostBalanceInUSD *float64 `json:"PostBalanceInUSD"`
		Currency         struct {
			Name   string `json:"Name"`
			Symbol string `json:"Symbol"`
		} `json:"Currency"`
	} `json:"TokenSupplyUpdate"`
}

// toMarketData converts a supply update into the domain snapshot.
func (r *rawSupplyUpdate) toMarketData(mint string) *domain.MarketData {
	md := &domain.MarketData{Mint: mint}
	u := r.TokenSupplyUpdate
	if u.PostBalance != nil {
		md.TotalSupply = u.PostBalance
	}
	if u.PostBalanceInUSD != nil {
		md.MarketCap = u.PostBalanceInUSD
	}
	if u.Currency.Name != "" {
		name := u.Currency.Name
		md.Name = &name
	}
	if u.Currency.Symbol != "" {
		symbol := u.Currency.Symbol
		md.Symbol = &symbol
	}
	return md
}
