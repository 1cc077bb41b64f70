// Package orchestrator sequences one ingestion run:
// token-creation fetch → price fetch → market-data refresh.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"memecoin-tracker/internal/bitquery"
	"memecoin-tracker/internal/cursor"
	"memecoin-tracker/internal/ingest"
	"memecoin-tracker/internal/observability"
	"memecoin-tracker/internal/refresh"
)

// FeedSource fetches the two polled feeds.
type FeedSource interface {
	FetchTokenCreations(ctx context.Context, since time.Time) (*bitquery.TokenFeedResult, error)
	FetchTrades(ctx context.Context, since time.Time) (*bitquery.PriceFeedResult, error)
}

// Archiver persists raw feed responses.
type Archiver interface {
	Write(feed string, raw []byte) (string, error)
}

// PricePipeline applies price-feed trades to the store.
type PricePipeline interface {
	Apply(ctx context.Context, trades []bitquery.Trade) *ingest.Result
}

// MarketRefresher runs one market-data refresh pass.
type MarketRefresher interface {
	Run(ctx context.Context) (*refresh.Result, error)
}

// Orchestrator runs the three passes strictly in sequence. It owns all
// cursor loads and saves; a pass error aborts the remaining passes.
// Each invocation is a single run; scheduling is external.
type Orchestrator struct {
	source    FeedSource
	cursors   cursor.Store
	archiver  Archiver
	pipeline  PricePipeline
	refresher MarketRefresher
	metrics   *observability.Metrics
	logger    *log.Logger
	now       func() time.Time
}

// Options contains configuration for creating an Orchestrator.
type Options struct {
	Source    FeedSource
	Cursors   cursor.Store
	Archiver  Archiver
	Pipeline  PricePipeline
	Refresher MarketRefresher
	Metrics   *observability.Metrics // optional
	Logger    *log.Logger
	Now       func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		source:    opts.Source,
		cursors:   opts.Cursors,
		archiver:  opts.Archiver,
		pipeline:  opts.Pipeline,
		refresher: opts.Refresher,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       now,
	}
}

// observeFetch records feed-fetch metrics when metrics are configured.
func (o *Orchestrator) observeFetch(feed string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.FeedFetchesTotal.WithLabelValues(feed).Inc()
	o.metrics.FeedFetchLatency.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.FeedFetchErrors.WithLabelValues(feed).Inc()
	}
}

// RunResult summarizes one full run.
type RunResult struct {
	TokenCreationsSeen int
	Pipeline           *ingest.Result
	Refresh            *refresh.Result
}

// Run executes one full ingestion pass.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	o.logger.Println("pass 1: token-creation feed")
	if err := o.runTokenFeed(ctx, result); err != nil {
		return nil, fmt.Errorf("token feed pass: %w", err)
	}

	o.logger.Println("pass 2: price feed")
	if err := o.runPriceFeed(ctx, result); err != nil {
		return nil, fmt.Errorf("price feed pass: %w", err)
	}

	o.logger.Println("pass 3: market-data refresh")
	refreshResult, err := o.refresher.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("market-data refresh pass: %w", err)
	}
	result.Refresh = refreshResult

	o.logger.Printf("run complete: %d token creations, %d prices inserted, %d tokens refreshed",
		result.TokenCreationsSeen, result.Pipeline.Inserted, result.Refresh.Refreshed)
	return result, nil
}

// runTokenFeed fetches and archives new token creations. No token rows
// are created from this feed; onboarding happens elsewhere.
func (o *Orchestrator) runTokenFeed(ctx context.Context, result *RunResult) error {
	c, err := o.cursors.Load(cursor.FeedMemecoins)
	if err != nil {
		return err
	}

	start := time.Now()
	feed, err := o.source.FetchTokenCreations(ctx, c.SinceTimestamp)
	o.observeFetch(cursor.FeedMemecoins, start, err)
	if err != nil {
		return err
	}
	result.TokenCreationsSeen = len(feed.Records)
	o.logger.Printf("token feed: %d records since %s", len(feed.Records), c.SinceTimestamp.Format(time.RFC3339))

	if _, err := o.archiver.Write(cursor.FeedMemecoins, feed.Raw); err != nil {
		return err
	}

	var maxObserved time.Time
	for _, rec := range feed.Records {
		if rec.BlockTime.After(maxObserved) {
			maxObserved = rec.BlockTime
		}
	}

	return o.cursors.Save(cursor.FeedMemecoins, c.Advance(maxObserved, o.now().UTC()))
}

// runPriceFeed fetches trades, archives them and applies the pipeline.
func (o *Orchestrator) runPriceFeed(ctx context.Context, result *RunResult) error {
	c, err := o.cursors.Load(cursor.FeedPrices)
	if err != nil {
		return err
	}

	start := time.Now()
	feed, err := o.source.FetchTrades(ctx, c.SinceTimestamp)
	o.observeFetch(cursor.FeedPrices, start, err)
	if err != nil {
		return err
	}
	o.logger.Printf("price feed: %d trades since %s", len(feed.Trades), c.SinceTimestamp.Format(time.RFC3339))

	if _, err := o.archiver.Write(cursor.FeedPrices, feed.Raw); err != nil {
		return err
	}

	result.Pipeline = o.pipeline.Apply(ctx, feed.Trades)
	o.logger.Printf("pipeline: %d inserted, %d skipped (no uri), %d dropped (no token), %d batch errors",
		result.Pipeline.Inserted, result.Pipeline.SkippedEmptyURI,
		result.Pipeline.SkippedUnknownToken, len(result.Pipeline.BatchErrors))

	var maxObserved time.Time
	for _, t := range feed.Trades {
		if t.BlockTime.After(maxObserved) {
			maxObserved = t.BlockTime
		}
	}

	return o.cursors.Save(cursor.FeedPrices, c.Advance(maxObserved, o.now().UTC()))
}
