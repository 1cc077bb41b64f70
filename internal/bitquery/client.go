package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"memecoin-tracker/internal/domain"
)

// Default configuration values.
const (
	DefaultEndpoint = "https://streaming.bitquery.io/eap"
	DefaultTimeout  = 30 * time.Second
)

// Client issues GraphQL queries against the Bitquery streaming API.
type Client struct {
	endpoint string
	apiKey   string
	token    string
	client   *http.Client
	logger   *log.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Bitquery client. Missing credentials are a
// configuration error surfaced here, before any network call.
func NewClient(apiKey, token string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" || token == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		token:    token,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// graphQLRequest is the POST body shape.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// query performs one GraphQL POST and returns the verbatim body and
// the parsed envelope after transport, HTTP and GraphQL-level checks.
func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}) ([]byte, *envelope, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.logger.Printf("bitquery request rejected: status=%d body=%s", resp.StatusCode, respBody)
		return nil, nil, ErrUnauthorized
	case http.StatusForbidden:
		c.logger.Printf("bitquery request rejected: status=%d body=%s", resp.StatusCode, respBody)
		return nil, nil, ErrForbidden
	case http.StatusTooManyRequests:
		c.logger.Printf("bitquery request rate limited: status=%d", resp.StatusCode)
		return nil, nil, ErrRateLimited
	default:
		c.logger.Printf("bitquery request failed: status=%d body=%s", resp.StatusCode, respBody)
		return nil, nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(env.Errors) > 0 {
		messages := make([]string, len(env.Errors))
		for i, e := range env.Errors {
			messages[i] = e.Message
		}
		gqlErr := &GraphQLError{Messages: messages}
		c.logger.Printf("bitquery graphql errors: %v", messages)
		return nil, nil, gqlErr
	}

	return respBody, &env, nil
}

// solanaLevel validates the data and data.Solana levels of a parsed
// envelope and returns the per-feed raw fields. Each missing level is
// a distinct schema error. A JSON null data field counts as missing.
func (c *Client) solanaLevel(env *envelope) (*solanaData, error) {
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, c.schemaErr("data")
	}

	var data solanaData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if data.Solana == nil {
		return nil, c.schemaErr("data.Solana")
	}

	return &data, nil
}

func (c *Client) schemaErr(path string) error {
	err := &SchemaError{Path: path}
	c.logger.Printf("bitquery response schema violation: %v", err)
	return err
}

// FetchTokenCreations fetches pump.fun token creations since the given
// lower bound.
func (c *Client) FetchTokenCreations(ctx context.Context, since time.Time) (*TokenFeedResult, error) {
	respBody, env, err := c.query(ctx, tokenCreationQuery, map[string]interface{}{
		"since":   since.UTC().Format(time.RFC3339),
		"program": PumpFunProgram,
		"method":  pumpFunCreateMethod,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.solanaLevel(env)
	if err != nil {
		return nil, err
	}
	if data.Solana.Instructions == nil {
		return nil, c.schemaErr("data.Solana.Instructions")
	}

	var raw []rawInstruction
	if err := json.Unmarshal(data.Solana.Instructions, &raw); err != nil {
		return nil, c.schemaErr("data.Solana.Instructions (not an array)")
	}

	result := &TokenFeedResult{Raw: respBody}
	for _, r := range raw {
		rec := TokenCreation{Signature: r.Transaction.Signature}
		if t, err := time.Parse(time.RFC3339, r.Block.Time); err == nil {
			rec.BlockTime = t
		}
		for _, a := range r.Instruction.Accounts {
			rec.Accounts = append(rec.Accounts, a.Address)
		}
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

// FetchTrades fetches the latest pump.fun trade per token since the
// given lower bound.
func (c *Client) FetchTrades(ctx context.Context, since time.Time) (*PriceFeedResult, error) {
	respBody, env, err := c.query(ctx, dexTradesQuery, map[string]interface{}{
		"since":    since.UTC().Format(time.RFC3339),
		"excluded": []string{nativeSOLMint},
	})
	if err != nil {
		return nil, err
	}

	data, err := c.solanaLevel(env)
	if err != nil {
		return nil, err
	}
	if data.Solana.DEXTrades == nil {
		return nil, c.schemaErr("data.Solana.DEXTrades")
	}

	var raw []rawTrade
	if err := json.Unmarshal(data.Solana.DEXTrades, &raw); err != nil {
		return nil, c.schemaErr("data.Solana.DEXTrades (not an array)")
	}

	result := &PriceFeedResult{Raw: respBody}
	for _, r := range raw {
		trade := Trade{
			URI:      r.Trade.Buy.Currency.Uri,
			Mint:     r.Trade.Buy.Currency.MintAddress,
			Name:     r.Trade.Buy.Currency.Name,
			Symbol:   r.Trade.Buy.Currency.Symbol,
			PriceUSD: r.Trade.Buy.PriceInUSD,
			PriceSOL: r.Trade.Buy.Price,
		}
		if t, err := time.Parse(time.RFC3339, r.Block.Time); err == nil {
			trade.BlockTime = t
		}
		result.Trades = append(result.Trades, trade)
	}

	return result, nil
}

// FetchMarketData fetches the newest supply snapshot for one mint.
// Returns nil when the source has no data for the mint.
func (c *Client) FetchMarketData(ctx context.Context, mint string) (*domain.MarketData, error) {
	_, env, err := c.query(ctx, tokenSupplyQuery, map[string]interface{}{
		"mint": mint,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.solanaLevel(env)
	if err != nil {
		return nil, err
	}
	if data.Solana.TokenSupplyUpdates == nil {
		return nil, c.schemaErr("data.Solana.TokenSupplyUpdates")
	}

	var raw []rawSupplyUpdate
	if err := json.Unmarshal(data.Solana.TokenSupplyUpdates, &raw); err != nil {
		return nil, c.schemaErr("data.Solana.TokenSupplyUpdates (not an array)")
	}

	if len(raw) == 0 {
		return nil, nil
	}
	return raw[0].toMarketData(mint), nil
}
