// AOMA Mesh server — exposes the enterprise knowledge retrieval tools over
// the stdio MCP transport and an HTTP API, backed by OpenAI and Supabase.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aoma-tools/aoma-mesh/pkg/api"
	"github.com/aoma-tools/aoma-mesh/pkg/cache"
	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/mcpserver"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/orchestrator"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
	"github.com/aoma-tools/aoma-mesh/pkg/swarm"
	"github.com/aoma-tools/aoma-mesh/pkg/tools"
	"github.com/aoma-tools/aoma-mesh/pkg/trace"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "."),
		"Path to configuration directory (holds .env)")
	flag.Parse()

	ctx := context.Background()

	// 1. Load and validate configuration
	env, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr: stdout belongs to the stdio MCP transport.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: env.SlogLevel(),
	})))

	slog.Info("Starting AOMA Mesh",
		"version", env.Version,
		"environment", env.Env,
		"http_port", env.HTTPPort,
		"stdio", env.StdioEnabled())

	// 2. Build upstream clients
	llmClient := llm.NewClient(env)
	dbClient := db.NewClient(env)

	// 3. Build retrieval services and the ensemble orchestrator
	knowledge := retrieval.NewKnowledgeService(llmClient, env.VectorStoreID)
	jira := retrieval.NewJiraService(dbClient, llmClient, env.JiraBaseURL)
	git := retrieval.NewGitService(dbClient, llmClient)
	unified := retrieval.NewUnifiedRetriever(dbClient, llmClient)
	ensemble := orchestrator.New(unified, llmClient, env.VectorStoreID)

	// 4. Build the swarm controller on top of the retrieval services
	adapter := swarm.NewServiceAdapter(git, jira, knowledge, llmClient, env.AssistantID, env.VectorStoreID)
	controller := swarm.NewController(adapter)

	// 5. Ambient infrastructure: metrics, cache, tracing
	collector := metrics.New(env.Version)
	store := cache.New()
	store.StartSweeper()
	tracer := trace.New(env)

	// 5a. Health monitor with a startup gate: refuse to start when every
	// upstream is down, but tolerate a degraded start.
	var vectorProbe health.Prober
	if env.VectorStoreID != "" {
		storeID := env.VectorStoreID
		vectorProbe = health.ProbeFunc(func(ctx context.Context) error {
			return llmClient.ProbeVectorStore(ctx, storeID)
		})
	}
	monitor := health.NewMonitor(llmClient, dbClient, vectorProbe, env.HealthInterval())

	startup := monitor.Check(ctx)
	if !startup.Healthy() {
		slog.Warn("Startup health check reported issues", "status", startup.Status)
	}
	if startup.Status == "unhealthy" {
		slog.Error("All upstream services unreachable, aborting startup")
		os.Exit(1)
	}
	monitor.Start(ctx)

	// 6. Assemble the tool registry and dispatcher shared by both transports
	registry := tools.NewRegistryWithTools(tools.Deps{
		Env:       env,
		Knowledge: knowledge,
		Jira:      jira,
		Git:       git,
		Ensemble:  ensemble,
		Swarm:     controller,
		LLM:       llmClient,
		Health:    monitor,
		Metrics:   collector,
	})
	dispatcher := tools.NewDispatcher(registry, collector, store, tracer, env.Timeout())

	// 7. Start HTTP server (non-blocking)
	httpServer := api.NewServer(env, dispatcher, monitor, collector)
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 8. Connect the stdio MCP transport unless disabled
	var stdioServer *mcpserver.Server
	if env.StdioEnabled() {
		stdioServer = mcpserver.New(env, dispatcher, monitor, collector)
		stdioServer.Start(ctx)
	}

	slog.Info("AOMA Mesh started successfully",
		"tools", len(registry.Names()),
		"version", env.Version)

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
		exitCode = 1
	}

	// 10. Graceful shutdown: drain HTTP, close stdio, stop background loops
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		exitCode = 1
	}
	if stdioServer != nil {
		stdioServer.Stop()
	}
	monitor.Stop()
	store.StopSweeper()
	tracer.Flush()

	slog.Info("Shutdown complete")
	os.Exit(exitCode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
