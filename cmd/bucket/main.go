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

	"github.com/design4music/sni-platform-sub004/internal/actors"
	"github.com/design4music/sni-platform-sub004/internal/adapter/repository"
	"github.com/design4music/sni-platform-sub004/internal/buckets"
	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/infra"
	"github.com/design4music/sni-platform-sub004/internal/infra/config"
	"github.com/design4music/sni-platform-sub004/internal/infra/logger"
)

const exitCodeInterrupt = 130

var (
	version = "dev"

	// Global flags
	verbose bool

	// Run command flags
	hours   int
	dryRun  bool
	summary bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bucket",
	Short:   "Group gated titles into actor-set buckets",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build buckets from recently gated titles",
	Long: `Build buckets from recently gated titles: titles inside the window are
grouped by their canonical actor-set key and persisted once per bucket
identifier. Re-runs over an unchanged window insert nothing.

Examples:
  # Bucket the configured window
  bucket run

  # Last 48 hours, report without writing
  bucket run --hours 48 --dry-run --summary`,
	RunE: runBucket,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	runCmd.Flags().IntVar(&hours, "hours", 0, "window size in hours (0 = configured default)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report candidates without inserting")
	runCmd.Flags().BoolVar(&summary, "summary", false, "print a single BUCKET_RESULT line")

	rootCmd.AddCommand(runCmd)
}

func loadVocabulary(ctx context.Context, cfg *config.Config, db repository.DB) (*actors.Vocabulary, error) {
	var (
		list []domain.Actor
		err  error
	)
	switch cfg.Actors.Source {
	case "db":
		list, err = actors.LoadTable(ctx, db, actors.Options{})
	default:
		list, err = actors.LoadCSV(cfg.Actors.CSVPath, actors.Options{})
	}
	if err != nil {
		return nil, err
	}
	return actors.New(list)
}

func runBucket(cmd *cobra.Command, args []string) error {
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

	vocab, err := loadVocabulary(ctx, cfg, pool)
	if err != nil {
		return fmt.Errorf("load actor vocabulary: %w", err)
	}
	log.Info("vocabulary loaded", "actors", len(vocab.Actors()), "aliases", vocab.AliasCount())

	manager := buckets.NewManager(
		repository.NewTitleRepository(pool, log),
		repository.NewBucketRepository(pool, log),
		vocab,
		cfg.Bucket,
		log,
	)

	stats, err := manager.Run(ctx, hours, dryRun)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return fmt.Errorf("run bucket manager: %w", err)
	}

	if summary {
		fmt.Printf("BUCKET_RESULT: %d/%d buckets inserted, %d skipped, %d errors\n",
			stats.Inserted, stats.Candidates, stats.Skipped, stats.Errors)
	}

	if interrupted {
		log.Info("bucket run interrupted")
		pool.Close()
		os.Exit(exitCodeInterrupt)
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%d bucket inserts failed", stats.Errors)
	}
	return nil
}
