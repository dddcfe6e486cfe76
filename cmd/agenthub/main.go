package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/compute"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/duckduckgo"
	ahhttp "github.com/rahulnsecc/AI-4-all/internal/adapter/http"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/litellm"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/mcp"
	ahnats "github.com/rahulnsecc/AI-4-all/internal/adapter/nats"
	ahotel "github.com/rahulnsecc/AI-4-all/internal/adapter/otel"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/pgsql"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/postgres"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/ristretto"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/ws"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/yahoo"
	"github.com/rahulnsecc/AI-4-all/internal/config"
	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/logger"
	"github.com/rahulnsecc/AI-4-all/internal/middleware"
	"github.com/rahulnsecc/AI-4-all/internal/resilience"
	"github.com/rahulnsecc/AI-4-all/internal/service"
)

const version = "0.3.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LiteLLM.Model,
		"auth", cfg.Auth.Enabled,
	)

	ctx := context.Background()

	// --- Observability ---
	otelShutdown, err := ahotel.Setup(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := ahotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := ahnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// In-process cache for utilization metrics
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- External capabilities ---
	llmBreaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	fetchBreaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey, cfg.LiteLLM.Model, cfg.LiteLLM.Timeout)
	llm.SetBreaker(llmBreaker)

	finance := yahoo.NewClient("")
	finance.SetBreaker(fetchBreaker)

	search := duckduckgo.NewClient("")
	search.SetBreaker(fetchBreaker)

	cloud := compute.NewClient(cfg.Compute.URL, cfg.Compute.APIKey)
	cloud.SetBreaker(fetchBreaker)

	engine := pgsql.NewEngine(pool)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	tools := service.NewToolRegistry()
	tools.Register(service.NewFetchTool("finance_quote", "quote", finance))
	tools.Register(service.NewFetchTool("web_search", "search", search))

	sessions := service.NewSessionService(store, hub, queue)
	router := service.NewRouterService(agent.DefaultRoster(), cfg.Router.FallbackAgent)
	agents := service.NewAgentService(llm, tools)
	panel := service.NewPanelService(llm, sessions)
	panel.SetMetrics(metrics)
	repairs := service.NewRepairService(sessions, cfg.Repair.MaxAttempts, cfg.Repair.RetryBackoff)
	repairs.SetMetrics(metrics)
	content := service.NewContentService(agents, panel, sessions)
	sqls := service.NewSQLService(engine, llm, repairs, panel)
	costs := service.NewCostScanService(cloud, cloud, cache, repairs, cfg.CostScan, cfg.Cache.MetricsTTL)

	orch := service.NewOrchestrator(service.OrchestratorDeps{
		Store:    store,
		Sessions: sessions,
		Router:   router,
		Agents:   agents,
		Content:  content,
		SQL:      sqls,
		CostScan: costs,
		Hub:      hub,
		Queue:    queue,
		Metrics:  metrics,
	})

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "agenthub",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{
			TaskLister:    store,
			SessionReader: store,
			ReportReader:  store,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(stopCtx)
		}()
		slog.Info("mcp server started", "addr", cfg.MCP.Addr)
	}

	// --- HTTP ---
	handlers := ahhttp.NewHandlers(orch, store, llm, hub.HandleWS)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(ahhttp.Logger)
	r.Use(ahhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(ahotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Auth(store, cfg.Auth.Enabled))

	ahhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
