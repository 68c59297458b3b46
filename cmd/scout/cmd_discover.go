package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prospect-labs/scout/internal/config"
	"github.com/prospect-labs/scout/internal/domain"
	"github.com/prospect-labs/scout/internal/embedding"
	"github.com/prospect-labs/scout/internal/engine"
	"github.com/prospect-labs/scout/internal/llm"
	"github.com/prospect-labs/scout/internal/search"
	"github.com/prospect-labs/scout/internal/signals"
	"github.com/prospect-labs/scout/internal/store"
)

var discoverFlags struct {
	maxPasses   int
	concurrency int
	categories  string
	jsonOut     bool
	quiet       bool
}

var discoverCmd = &cobra.Command{
	Use:   "discover <entity-id>",
	Short: "Run a multi-pass discovery session against an entity",
	Long: `Run the discovery engine against a business entity and print the
opportunity report. Providers are taken from the environment (see .env):
REASONER_PROVIDER, SEARCH_PROVIDER, EMBEDDING_PROVIDER. With no keys
configured the mock providers run a fully local session.

If DATABASE_URL is set, the session is archived and past episodes and
relationship edges feed the temporal and network signals.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.IntVar(&discoverFlags.maxPasses, "max-passes", 0, "Maximum passes (default: MAX_PASSES or 5)")
	f.IntVar(&discoverFlags.concurrency, "concurrency", 0, "Worker pool size per pass (default: PASS_CONCURRENCY or 4)")
	f.StringVar(&discoverFlags.categories, "categories", "", "Path to a YAML category value table")
	f.BoolVar(&discoverFlags.jsonOut, "json", false, "Print the full report as JSON")
	f.BoolVarP(&discoverFlags.quiet, "quiet", "q", false, "Suppress per-pass progress output")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	entityID := args[0]

	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()
	if !discoverFlags.quiet && discoverFlags.jsonOut {
		// keep stdout clean for JSON output
		discoverFlags.quiet = true
	}

	reasoner, err := llm.NewReasoner(config.ReasonerProvider(), config.ReasonerAPIKey())
	if err != nil {
		return fmt.Errorf("reasoner: %w", err)
	}
	gatherer, err := search.NewGatherer(config.SearchProvider(), config.SearchEndpoint(), config.SearchAPIKey())
	if err != nil {
		return fmt.Errorf("evidence gatherer: %w", err)
	}

	concurrency := discoverFlags.concurrency
	if concurrency <= 0 {
		concurrency = config.PassConcurrency()
	}
	maxPasses := discoverFlags.maxPasses
	if maxPasses <= 0 {
		maxPasses = config.MaxPasses()
	}

	orchestrator := engine.NewOrchestrator(gatherer, reasoner, engine.OrchestratorConfig{
		MaxPasses:      maxPasses,
		TopK:           config.TopK(),
		SessionTimeout: config.SessionTimeout(),
		Coordinator: engine.CoordinatorConfig{
			Concurrency: concurrency,
			CallTimeout: config.CollaboratorTimeout(),
			CallBudget:  config.PassCallBudget(),
		},
	}, logger)

	if path := discoverFlags.categories; path != "" {
		table, err := domain.LoadCategoryTable(path)
		if err != nil {
			return fmt.Errorf("category table: %w", err)
		}
		orchestrator.SetCategoryTable(table)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional persistence wiring
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		episodeStore := store.NewEpisodeStore(pool)
		orchestrator.SetSessionStore(store.NewSessionStore(pool))
		orchestrator.SetEpisodeStore(episodeStore)
		orchestrator.SetTemporalProvider(signals.NewTemporalSignal(episodeStore, logger))
		orchestrator.SetNetworkProvider(signals.NewNetworkSignal(store.NewGraphStore(pool), logger))

		if embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey(), config.EmbeddingModel()); err == nil {
			orchestrator.SetEmbeddingClient(embedder)
		}
	}

	progress := make(chan domain.PassResult, maxPasses)
	orchestrator.SetProgress(progress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range progress {
			if discoverFlags.quiet {
				continue
			}
			fmt.Fprintf(os.Stderr, "pass %d: investigated %d, evidence +%d, confidence %.2f (%+.2f)\n",
				result.Pass, len(result.Investigated), result.EvidenceAdded,
				result.Confidence, result.ConfidenceDelta)
		}
	}()

	session, err := orchestrator.Discover(ctx, entityID, maxPasses)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	report := engine.BuildReport(session, orchestrator.CategoryTable())

	if discoverFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(os.Stdout, session, report)
	return nil
}
