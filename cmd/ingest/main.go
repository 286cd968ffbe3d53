package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/design4music/sni-platform-sub004/internal/adapter/repository"
	"github.com/design4music/sni-platform-sub004/internal/infra"
	"github.com/design4music/sni-platform-sub004/internal/infra/config"
	"github.com/design4music/sni-platform-sub004/internal/infra/logger"
	"github.com/design4music/sni-platform-sub004/internal/ingest"
	"github.com/design4music/sni-platform-sub004/internal/ratelimit"
	"github.com/design4music/sni-platform-sub004/internal/robots"
)

const exitCodeInterrupt = 130

var (
	version = "dev"

	// Global flags
	verbose bool

	// Run command flags
	maxFeeds int
	summary  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Ingest RSS feeds into the title store",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass over the configured feeds",
	Long: `Run one ingestion pass: each feed is fetched with a conditional GET,
new entries are normalized and inserted as pending titles, and the
per-feed watermark advances.

Examples:
  # Ingest every feed in the feeds file
  ingest run

  # Limit the pass to the first 10 feeds and print the result line
  ingest run --max-feeds 10 --summary`,
	RunE: runIngest,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	runCmd.Flags().IntVar(&maxFeeds, "max-feeds", 0, "process at most N feeds (0 = all)")
	runCmd.Flags().BoolVar(&summary, "summary", false, "print a single INGESTION_RESULT line")

	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(verbose)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down...", "signal", sig.String())
		cancel()
	}()

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	feedURLs, err := ingest.LoadFeedsFile(cfg.Ingest.FeedsFile)
	if err != nil {
		return fmt.Errorf("load feeds: %w", err)
	}

	client := ingest.NewHTTPClient(cfg.HTTP.Timeout)
	var checker *robots.Checker
	if cfg.HTTP.RespectRobots {
		checker = robots.NewChecker(client, cfg.HTTP.UserAgent)
	}

	fetcher := ingest.NewFetcher(
		client,
		repository.NewFeedStateRepository(pool, log),
		repository.NewTitleRepository(pool, log),
		ratelimit.NewHostLimiter(cfg.HTTP.HostInterval),
		checker,
		cfg,
		log,
	)

	log.Info("starting ingestion",
		"feeds", len(feedURLs),
		"max_feeds", maxFeeds,
		"feeds_file", cfg.Ingest.FeedsFile)

	stats, err := fetcher.Run(ctx, feedURLs, maxFeeds)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return fmt.Errorf("run ingestion: %w", err)
	}

	if summary {
		fmt.Printf("INGESTION_RESULT: %d/%d feeds success, %d inserted, %d skipped\n",
			stats.Success, stats.Processed, stats.Inserted, stats.Skipped)
	}

	if interrupted {
		log.Info("ingestion interrupted")
		pool.Close()
		os.Exit(exitCodeInterrupt)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d feeds failed", stats.Failed, stats.Processed)
	}
	return nil
}
