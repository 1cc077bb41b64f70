// Package refresh periodically backfills token market data.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// Default refresher configuration.
const (
	DefaultCandidateLimit = 50
	DefaultBatchSize      = 5
	DefaultFetchDelay     = 1 * time.Second
	DefaultBatchDelay     = 2 * time.Second
	DefaultStaleAfter     = 24 * time.Hour
)

// MarketDataSource fetches per-token market data.
type MarketDataSource interface {
	FetchMarketData(ctx context.Context, mint string) (*domain.MarketData, error)
}

// Refresher selects token rows with missing or stale market fields and
// re-queries the source for them. Rate limiting is a fixed sleep before
// each fetch and between batches, not an adaptive scheme. Per-token
// errors are logged and skipped; nothing aborts the run.
type Refresher struct {
	tokens         storage.TokenStore
	source         MarketDataSource
	candidateLimit int
	batchSize      int
	fetchDelay     time.Duration
	batchDelay     time.Duration
	staleAfter     time.Duration
	logger         *log.Logger
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration)
}

// Options contains configuration for creating a Refresher.
type Options struct {
	TokenStore     storage.TokenStore
	Source         MarketDataSource
	CandidateLimit int
	BatchSize      int
	FetchDelay     time.Duration
	BatchDelay     time.Duration
	StaleAfter     time.Duration
	Logger         *log.Logger
	Now            func() time.Time
	Sleep          func(ctx context.Context, d time.Duration) // overridden in tests
}

// NewRefresher creates a new Refresher.
func NewRefresher(opts Options) *Refresher {
	r := &Refresher{
		tokens:         opts.TokenStore,
		source:         opts.Source,
		candidateLimit: opts.CandidateLimit,
		batchSize:      opts.BatchSize,
		fetchDelay:     opts.FetchDelay,
		batchDelay:     opts.BatchDelay,
		staleAfter:     opts.StaleAfter,
		logger:         opts.Logger,
		now:            opts.Now,
		sleep:          opts.Sleep,
	}
	if r.candidateLimit == 0 {
		r.candidateLimit = DefaultCandidateLimit
	}
	if r.batchSize == 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.fetchDelay == 0 {
		r.fetchDelay = DefaultFetchDelay
	}
	if r.batchDelay == 0 {
		r.batchDelay = DefaultBatchDelay
	}
	if r.staleAfter == 0 {
		r.staleAfter = DefaultStaleAfter
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = sleepCtx
	}
	return r
}

// Result summarizes one refresh pass.
type Result struct {
	Candidates int
	Refreshed  int
	Skipped    int // no data, invalid or off-curve address
	Errors     []string
}

// Run executes one refresh pass.
func (r *Refresher) Run(ctx context.Context) (*Result, error) {
	staleBefore := r.now().UTC().Add(-r.staleAfter)
	candidates, err := r.tokens.SelectRefreshCandidates(ctx, staleBefore, r.candidateLimit)
	if err != nil {
		return nil, err
	}

	result := &Result{Candidates: len(candidates)}
	r.logger.Printf("market-data refresh: %d candidates", len(candidates))

	for start := 0; start < len(candidates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		r.refreshBatch(ctx, candidates[start:end], result)

		if end < len(candidates) {
			r.sleep(ctx, r.batchDelay)
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	r.logger.Printf("market-data refresh done: %d refreshed, %d skipped, %d errors",
		result.Refreshed, result.Skipped, len(result.Errors))
	return result, nil
}

// refreshBatch fetches the batch concurrently, one goroutine per token.
func (r *Refresher) refreshBatch(ctx context.Context, batch []*domain.Token, result *Result) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, token := range batch {
		wg.Add(1)
		go func(token *domain.Token) {
			defer wg.Done()

			r.sleep(ctx, r.fetchDelay)

			outcome, errMsg := r.refreshToken(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeRefreshed:
				result.Refreshed++
			case outcomeSkipped:
				result.Skipped++
			case outcomeError:
				result.Errors = append(result.Errors, errMsg)
			}
		}(token)
	}

	wg.Wait()
}

type outcome int

const (
	outcomeRefreshed outcome = iota
	outcomeSkipped
	outcomeError
)

// refreshToken fetches and writes back market data for one token.
func (r *Refresher) refreshToken(ctx context.Context, token *domain.Token) (outcome, string) {
	if token.Address == nil {
		r.logger.Printf("token %d has no address, skipping", token.ID)
		return outcomeSkipped, ""
	}
	addr := *token.Address

	pubkey, err := decodeAddress(addr)
	if err != nil {
		r.logger.Printf("token %d has invalid address %q: %v", token.ID, addr, err)
		return outcomeSkipped, ""
	}
	if !isOnCurve(pubkey) {
		r.logger.Printf("token %d address %s is off-curve, skipping", token.ID, addr)
		return outcomeSkipped, ""
	}

	md, err := r.source.FetchMarketData(ctx, addr)
	if err != nil {
		msg := "fetch market data for " + addr + ": " + err.Error()
		r.logger.Print(msg)
		return outcomeError, msg
	}
	if md.Empty() {
		r.logger.Printf("no market data for token %d (mint=%s)", token.ID, addr)
		return outcomeSkipped, ""
	}

	patch := domain.TokenPatch{
		Name:        md.Name,
		Symbol:      md.Symbol,
		MarketCap:   md.MarketCap,
		TotalSupply: md.TotalSupply,
		LastUpdated: r.now().UTC(),
	}
	if err := r.tokens.Patch(ctx, token.ID, patch); err != nil {
		msg := "write market data for token " + addr + ": " + err.Error()
		r.logger.Print(msg)
		return outcomeError, msg
	}
	return outcomeRefreshed, ""
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
