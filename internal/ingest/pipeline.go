// Package ingest turns raw price-feed trades into stored price rows.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"memecoin-tracker/internal/bitquery"
	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// DefaultBatchSize bounds the per-request payload against the store.
const DefaultBatchSize = 100

// Pipeline applies price-feed trades to the relational store.
//
// Per-record failures (missing join key) skip the record; per-batch
// failures (store query error) abandon the batch; neither aborts the
// run. Price rows are append-only and is_latest is set true on every
// insert without demoting prior rows.
type Pipeline struct {
	tokens    storage.TokenStore
	prices    storage.PriceStore
	history   storage.PriceHistoryStore // optional analytics sink
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

// Options contains configuration for creating a Pipeline.
type Options struct {
	TokenStore   storage.TokenStore
	PriceStore   storage.PriceStore
	HistoryStore storage.PriceHistoryStore // nil disables the analytics sink
	BatchSize    int
	Logger       *log.Logger
	Now          func() time.Time
}

// NewPipeline creates a new Pipeline.
func NewPipeline(opts Options) *Pipeline {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		tokens:    opts.TokenStore,
		prices:    opts.PriceStore,
		history:   opts.HistoryStore,
		batchSize: batchSize,
		logger:    logger,
		now:       now,
	}
}

// Result summarizes one pipeline application.
type Result struct {
	Inserted            int
	SkippedEmptyURI     int
	SkippedUnknownToken int
	Batches             int
	BatchErrors         []string
	PatchWarnings       []string
}

// patchTask is a deferred best-effort token metadata update, collected
// during a batch and drained before the batch is reported complete.
type patchTask struct {
	tokenID int64
	uri     string
	patch   domain.TokenPatch
}

// Apply normalizes and stores the given trades.
func (p *Pipeline) Apply(ctx context.Context, trades []bitquery.Trade) *Result {
	result := &Result{}

	// Per-record policy: a trade without a join key is skipped, not fatal.
	candidates := make([]bitquery.Trade, 0, len(trades))
	for _, t := range trades {
		t = sanitizeTrade(t)
		if t.URI == "" {
			result.SkippedEmptyURI++
			p.logger.Printf("skipping trade with empty currency uri (mint=%s)", t.Mint)
			continue
		}
		candidates = append(candidates, t)
	}

	for start := 0; start < len(candidates); start += p.batchSize {
		end := start + p.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		p.applyBatch(ctx, candidates[start:end], result)
		result.Batches++
	}

	return result
}

// applyBatch resolves, inserts and patches one batch. Any store error
// abandons this batch only.
func (p *Pipeline) applyBatch(ctx context.Context, batch []bitquery.Trade, result *Result) {
	uris := make([]string, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, t := range batch {
		if _, ok := seen[t.URI]; ok {
			continue
		}
		seen[t.URI] = struct{}{}
		uris = append(uris, t.URI)
	}

	tokens, err := p.tokens.GetByURIs(ctx, uris)
	if err != nil {
		msg := fmt.Sprintf("token lookup failed for batch of %d: %v", len(batch), err)
		p.logger.Print(msg)
		result.BatchErrors = append(result.BatchErrors, msg)
		return
	}

	byURI := make(map[string]*domain.Token, len(tokens))
	for _, t := range tokens {
		byURI[t.URI] = t
	}

	var (
		prices  []*domain.Price
		points  []*domain.PricePoint
		patches []patchTask
	)
	for _, trade := range batch {
		token, ok := byURI[trade.URI]
		if !ok {
			result.SkippedUnknownToken++
			p.logger.Printf("no token row for uri %s, dropping price record", trade.URI)
			continue
		}

		prices = append(prices, &domain.Price{
			TokenID:   token.ID,
			TokenURI:  trade.URI,
			PriceUSD:  trade.PriceUSD,
			PriceSOL:  trade.PriceSOL,
			TradeAt:   trade.BlockTime,
			Timestamp: trade.BlockTime,
			IsLatest:  true,
		})

		if p.history != nil {
			point := &domain.PricePoint{
				TokenURI:  trade.URI,
				Mint:      trade.Mint,
				Timestamp: trade.BlockTime,
			}
			if trade.PriceUSD != nil {
				point.PriceUSD = *trade.PriceUSD
			}
			if trade.PriceSOL != nil {
				point.PriceSOL = *trade.PriceSOL
			}
			points = append(points, point)
		}

		if task, ok := metadataPatch(token, trade, p.now().UTC()); ok {
			patches = append(patches, task)
		}
	}

	if len(prices) == 0 {
		return
	}

	if err := p.prices.InsertBulk(ctx, prices); err != nil {
		msg := fmt.Sprintf("price insert failed for batch of %d: %v", len(prices), err)
		p.logger.Print(msg)
		result.BatchErrors = append(result.BatchErrors, msg)
		return
	}
	result.Inserted += len(prices)

	// Analytics sink is best-effort: a failure never fails ingestion.
	if p.history != nil && len(points) > 0 {
		if err := p.history.InsertBulk(ctx, points); err != nil {
			p.logger.Printf("price history sink failed for batch of %d: %v", len(points), err)
		}
	}

	// Drain the collected metadata patches. Failures are warnings only.
	for _, task := range patches {
		if err := p.tokens.Patch(ctx, task.tokenID, task.patch); err != nil {
			msg := fmt.Sprintf("metadata patch failed for token %d (uri=%s): %v", task.tokenID, task.uri, err)
			p.logger.Print(msg)
			result.PatchWarnings = append(result.PatchWarnings, msg)
		}
	}
}

// metadataPatch builds the opportunistic name/symbol update for a
// matched trade, when the trade carries either field.
func metadataPatch(token *domain.Token, trade bitquery.Trade, now time.Time) (patchTask, bool) {
	if trade.Name == "" && trade.Symbol == "" {
		return patchTask{}, false
	}

	patch := domain.TokenPatch{LastUpdated: now}
	if trade.Name != "" {
		name := trade.Name
		patch.Name = &name
	}
	if trade.Symbol != "" {
		symbol := trade.Symbol
		patch.Symbol = &symbol
	}
	return patchTask{tokenID: token.ID, uri: trade.URI, patch: patch}, true
}
