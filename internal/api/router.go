package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/prospect-labs/scout/internal/api/handlers"
	mw "github.com/prospect-labs/scout/internal/api/middleware"
	"github.com/prospect-labs/scout/internal/config"
	"github.com/prospect-labs/scout/internal/domain"
	"github.com/prospect-labs/scout/internal/embedding"
	"github.com/prospect-labs/scout/internal/engine"
	"github.com/prospect-labs/scout/internal/llm"
	"github.com/prospect-labs/scout/internal/search"
	"github.com/prospect-labs/scout/internal/signals"
	"github.com/prospect-labs/scout/internal/store"
)

// App holds the router and the discovery engine for lifecycle management.
type App struct {
	Router       *chi.Mux
	Orchestrator *engine.Orchestrator
	startTime    time.Time
	metrics      *mw.MetricsCollector
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	sessionStore := store.NewSessionStore(db)
	episodeStore := store.NewEpisodeStore(db)
	graphStore := store.NewGraphStore(db)

	// External collaborators via provider factories
	reasoner, err := llm.NewReasoner(config.ReasonerProvider(), config.ReasonerAPIKey())
	if err != nil {
		logger.Warn("reasoner initialization failed, falling back to mock",
			zap.String("provider", config.ReasonerProvider()), zap.Error(err))
		reasoner = llm.NewMockReasoner()
	} else {
		logger.Info("reasoner initialized", zap.String("provider", config.ReasonerProvider()))
	}

	gatherer, err := search.NewGatherer(config.SearchProvider(), config.SearchEndpoint(), config.SearchAPIKey())
	if err != nil {
		logger.Warn("evidence gatherer initialization failed, falling back to mock",
			zap.String("provider", config.SearchProvider()), zap.Error(err))
		gatherer = search.NewMockGatherer()
	} else {
		logger.Info("evidence gatherer initialized", zap.String("provider", config.SearchProvider()))
	}

	embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey(), config.EmbeddingModel())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Engine
	orchestrator := engine.NewOrchestrator(gatherer, reasoner, engine.OrchestratorConfig{
		MaxPasses:      config.MaxPasses(),
		TopK:           config.TopK(),
		SessionTimeout: config.SessionTimeout(),
		Coordinator: engine.CoordinatorConfig{
			Concurrency: config.PassConcurrency(),
			CallTimeout: config.CollaboratorTimeout(),
			CallBudget:  config.PassCallBudget(),
		},
	}, logger)

	orchestrator.SetTemporalProvider(signals.NewTemporalSignal(episodeStore, logger))
	orchestrator.SetNetworkProvider(signals.NewNetworkSignal(graphStore, logger))
	orchestrator.SetSessionStore(sessionStore)
	orchestrator.SetEpisodeStore(episodeStore)
	if embedder != nil {
		orchestrator.SetEmbeddingClient(embedder)
	}

	if path := config.CategoryTablePath(); path != "" {
		table, err := domain.LoadCategoryTable(path)
		if err != nil {
			logger.Warn("category table load failed, using defaults", zap.String("path", path), zap.Error(err))
		} else {
			orchestrator.SetCategoryTable(table)
		}
	}

	// Handlers
	discoveryHandler := handlers.NewDiscoveryHandler(orchestrator, sessionStore, logger)
	graphHandler := handlers.NewGraphHandler(graphStore)

	r := chi.NewRouter()

	app := &App{
		Router:       r,
		Orchestrator: orchestrator,
		startTime:    time.Now(),
		metrics:      mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/discoveries", func(r chi.Router) {
			r.Post("/", discoveryHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", discoveryHandler.GetByID)
				r.Get("/report", discoveryHandler.GetReport)
			})
		})

		r.Route("/entities/{entityID}", func(r chi.Router) {
			r.Get("/discoveries", discoveryHandler.ListByEntity)
			r.Post("/edges", graphHandler.CreateEdge)
			r.Get("/edges", graphHandler.ListEdges)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.metrics.Requests(),
			"error_count":    app.metrics.Errors(),
			"in_flight":      app.metrics.InFlight(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Compile-time interface checks.
var (
	_ domain.SessionStore            = (*store.SessionStore)(nil)
	_ domain.EpisodeStore            = (*store.EpisodeStore)(nil)
	_ domain.GraphStore              = (*store.GraphStore)(nil)
	_ domain.TemporalContextProvider = (*signals.TemporalSignal)(nil)
	_ domain.NetworkContextProvider  = (*signals.NetworkSignal)(nil)
	_ domain.EmbeddingClient         = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient         = (*embedding.MockClient)(nil)
	_ domain.Reasoner                = (*llm.OpenAIReasoner)(nil)
	_ domain.Reasoner                = (*llm.AnthropicReasoner)(nil)
	_ domain.Reasoner                = (*llm.MockReasoner)(nil)
	_ domain.EvidenceGatherer        = (*search.WebSearchGatherer)(nil)
	_ domain.EvidenceGatherer        = (*search.MockGatherer)(nil)
)
