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
	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/gate"
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
	batchSize  int
	maxBatches int
	summary    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "gate",
	Short:   "Gate pending titles on the actor vocabulary",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process pending titles in batches",
	Long: `Process pending titles in batches: each title is matched against the
actor vocabulary and marked kept or dropped. Decisions are written back
in one transaction per batch.

Examples:
  # Gate everything currently pending
  gate run

  # Two batches of 50 with the result line
  gate run --batch-size 50 --max-batches 2 --summary`,
	RunE: runGate,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show how many titles await gating",
	RunE:  showPending,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "titles per batch (0 = configured default)")
	runCmd.Flags().IntVar(&maxBatches, "max-batches", 0, "stop after N batches (0 = until exhausted)")
	runCmd.Flags().BoolVar(&summary, "summary", false, "print a single GATE_RESULT line")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pendingCmd)
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

func runGate(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(verbose)

	size := batchSize
	if size <= 0 {
		size = cfg.Gate.BatchSize
	}
	batches := maxBatches
	if batches <= 0 {
		batches = cfg.Gate.MaxBatches
	}

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

	processor := gate.NewProcessor(repository.NewTitleRepository(pool, log), vocab, log)

	stats, err := processor.Run(ctx, size, batches)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return fmt.Errorf("run gate: %w", err)
	}

	if summary {
		fmt.Printf("GATE_RESULT: %d/%d kept, %d actor_hit, %d errors, %d batches\n",
			stats.Kept, stats.Processed, stats.ActorHits, stats.Errors, stats.Batches)
	}

	if interrupted {
		log.Info("gate interrupted")
		pool.Close()
		os.Exit(exitCodeInterrupt)
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%d batches failed", stats.Errors)
	}
	return nil
}

func showPending(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	count, err := repository.NewTitleRepository(pool, log).CountPending(ctx)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}

	fmt.Printf("Pending titles: %d\n", count)
	return nil
}
