package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"memecoin-tracker/internal/archive"
	"memecoin-tracker/internal/bitquery"
	"memecoin-tracker/internal/cursor"
	"memecoin-tracker/internal/ingest"
	"memecoin-tracker/internal/observability"
	"memecoin-tracker/internal/orchestrator"
	"memecoin-tracker/internal/refresh"
	"memecoin-tracker/internal/storage"
	chstore "memecoin-tracker/internal/storage/clickhouse"
	"memecoin-tracker/internal/storage/memory"
	"memecoin-tracker/internal/storage/migrations"
	pgstore "memecoin-tracker/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for the analytics sink (empty to disable)")
	apiKey := flag.String("api-key", os.Getenv("BITQUERY_API_KEY"), "Bitquery API key")
	oauthToken := flag.String("oauth-token", os.Getenv("BITQUERY_OAUTH_TOKEN"), "Bitquery OAuth bearer token")
	resultsDir := flag.String("results-dir", "results", "Directory for cursors and archived responses")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")
	skipRefresh := flag.Bool("skip-refresh", false, "Skip the market-data refresh pass")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")
	start := time.Now()
	err := run(ctx, logger, metrics, runConfig{
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		apiKey:        *apiKey,
		oauthToken:    *oauthToken,
		resultsDir:    *resultsDir,
		useMemory:     *useMemory,
		migrate:       *migrate,
		skipRefresh:   *skipRefresh,
	})
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Fatalf("Run failed: %v", err)
	}
	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.LastSuccessfulRun.SetToCurrentTime()

	logger.Println("Run complete")
}

type runConfig struct {
	postgresDSN   string
	clickhouseDSN string
	apiKey        string
	oauthToken    string
	resultsDir    string
	useMemory     bool
	migrate       bool
	skipRefresh   bool
}

// run wires the stores, client and orchestrator and executes one pass.
func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, cfg runConfig) error {
	// Missing credentials are fatal before any network call.
	client, err := bitquery.NewClient(cfg.apiKey, cfg.oauthToken, bitquery.WithLogger(logger))
	if err != nil {
		return err
	}

	var tokenStore storage.TokenStore = memory.NewTokenStore()
	var priceStore storage.PriceStore = memory.NewPriceStore()
	var historyStore storage.PriceHistoryStore

	if !cfg.useMemory {
		if cfg.postgresDSN == "" {
			return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}

		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if cfg.migrate {
			if err := applyPostgresMigrations(ctx, pool, logger); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
		}

		tokenStore = pgstore.NewTokenStore(pool)
		priceStore = pgstore.NewPriceStore(pool)
	}

	if cfg.clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if cfg.migrate {
			if err := applyClickhouseMigrations(ctx, conn, logger); err != nil {
				return fmt.Errorf("apply clickhouse migrations: %w", err)
			}
		}

		historyStore = chstore.NewPriceHistoryStore(conn)
	}

	cursors := cursor.NewFileStore(cfg.resultsDir)
	archiver := archive.New(cfg.resultsDir, archive.WithBestEffort(), archive.WithLogger(logger))

	pipeline := ingest.NewPipeline(ingest.Options{
		TokenStore:   tokenStore,
		PriceStore:   priceStore,
		HistoryStore: historyStore,
		Logger:       logger,
	})

	var refresher orchestrator.MarketRefresher = refresh.NewRefresher(refresh.Options{
		TokenStore: tokenStore,
		Source:     client,
		Logger:     logger,
	})
	if cfg.skipRefresh {
		refresher = noopRefresher{}
	}

	orch := orchestrator.New(orchestrator.Options{
		Source:    client,
		Cursors:   cursors,
		Archiver:  archiver,
		Pipeline:  pipeline,
		Refresher: refresher,
		Metrics:   metrics,
		Logger:    logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	metrics.FeedRecordsSeen.WithLabelValues(cursor.FeedMemecoins).Add(float64(result.TokenCreationsSeen))
	metrics.PricesInserted.Add(float64(result.Pipeline.Inserted))
	metrics.RecordsSkipped.WithLabelValues("empty_uri").Add(float64(result.Pipeline.SkippedEmptyURI))
	metrics.RecordsSkipped.WithLabelValues("unknown_token").Add(float64(result.Pipeline.SkippedUnknownToken))
	metrics.BatchErrorsTotal.Add(float64(len(result.Pipeline.BatchErrors)))
	metrics.TokensRefreshed.Add(float64(result.Refresh.Refreshed))
	metrics.RefreshSkipped.Add(float64(result.Refresh.Skipped))
	metrics.RefreshErrors.Add(float64(len(result.Refresh.Errors)))

	return nil
}

// noopRefresher satisfies the orchestrator when --skip-refresh is set.
type noopRefresher struct{}

func (noopRefresher) Run(context.Context) (*refresh.Result, error) {
	return &refresh.Result{}, nil
}

// applyClickhouseMigrations executes the embedded ClickHouse migration
// files in lexical order. Each file holds a single statement; the
// native protocol rejects multi-statement scripts.
func applyClickhouseMigrations(ctx context.Context, conn *chstore.Conn, logger *log.Logger) error {
	entries, err := fs.ReadDir(migrations.ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := fs.ReadFile(migrations.ClickhouseFS, "clickhouse/"+name)
		if err != nil {
			return err
		}
		if err := conn.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Printf("Applied clickhouse migration %s", name)
	}
	return nil
}

// applyPostgresMigrations executes the embedded migration files in
// lexical order.
func applyPostgresMigrations(ctx context.Context, pool *pgstore.Pool, logger *log.Logger) error {
	entries, err := fs.ReadDir(migrations.PostgresFS, "postgres")
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := fs.ReadFile(migrations.PostgresFS, "postgres/"+name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Printf("Applied migration %s", name)
	}
	return nil
}
