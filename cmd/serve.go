package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/delivery"
	ihttp "github.com/serialagent/gateway/internal/http"
	"github.com/serialagent/gateway/internal/nodes"
	"github.com/serialagent/gateway/internal/providers"
	"github.com/serialagent/gateway/internal/router"
	"github.com/serialagent/gateway/internal/scheduler"
	"github.com/serialagent/gateway/internal/sessions"
	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/tools"
	"github.com/serialagent/gateway/internal/tracing"
	"github.com/serialagent/gateway/internal/turn"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway: tool loop, scheduler, delivery dispatcher, node RPC",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Protocol:    cfg.Telemetry.Protocol,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		slog.Error("tracing init failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)

	var classifier *router.Classifier
	if cfg.Router.Classifier.Enabled && cfg.Router.Classifier.EmbedProvider != "" {
		if p, ok := providerRegistry.Get(cfg.Router.Classifier.EmbedProvider); ok {
			if embedder, ok := p.(providers.Embedder); ok {
				classifier = router.NewClassifier(embedder, cfg.Router.Classifier)
				if err := classifier.Warm(context.Background()); err != nil {
					slog.Warn("router: classifier warm-up failed", "error", err)
				}
			} else {
				slog.Warn("router: embed_provider does not implement Embed", "provider", cfg.Router.Classifier.EmbedProvider)
			}
		} else {
			slog.Warn("router: embed_provider not registered", "provider", cfg.Router.Classifier.EmbedProvider)
		}
	}
	smartRouter := router.New(providerRegistry, cfg.Router, classifier)

	toolRegistry := tools.NewRegistry()
	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	toolRegistry.Register(tools.NewReadFileTool(workspace, cfg.Agents.Defaults.RestrictToWorkspace))
	toolRegistry.Register(tools.NewExecTool(workspace, cfg.Agents.Defaults.RestrictToWorkspace))
	toolRegistry.Register(tools.NewCreateImageTool(providerRegistry))
	toolRegistry.Register(tools.NewReadImageTool(providerRegistry))
	toolRegistry.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	toolRegistry.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey:  cfg.Tools.Web.Brave.APIKey,
		BraveEnabled: cfg.Tools.Web.Brave.Enabled,
		DDGEnabled:   cfg.Tools.Web.DuckDuckGo.Enabled,
	}))
	policyEngine := tools.NewPolicyEngine(&cfg.Tools)

	stores, err := buildStores(cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}

	eventBus := bus.New()

	agents := map[string]turn.AgentConfig{}
	agents["default"] = turn.ResolveAgentConfig("default", cfg.Agents.Defaults, nil)
	for id, spec := range cfg.Agents.List {
		spec := spec
		agents[id] = turn.ResolveAgentConfig(id, cfg.Agents.Defaults, &spec)
	}

	runtime := turn.New(providerRegistry, smartRouter, toolRegistry, policyEngine, stores, eventBus, agents, "default")

	nodeRegistry := nodes.NewRegistry()
	runtime.Nodes = nodeRegistry
	nodeHandler := nodes.NewHandler(nodeRegistry, cfg.Gateway.AllowedOrigins)

	sched := scheduler.New(cfg.Scheduler, stores, runtime, eventBus)
	dispatcher := delivery.NewDispatcher(cfg.Delivery, stores, eventBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	defer sched.Stop()
	go dispatcher.Start(ctx, 5*time.Second)

	restartCh := make(chan struct{}, 1)
	apiServer := &ihttp.Server{
		Health:     ihttp.NewHealthHandler(providerRegistry, agentIDs(agents)),
		Sessions:   ihttp.NewSessionsHandler(stores, runtime, cfg.Gateway.Token),
		Chat:       ihttp.NewChatHandler(runtime, eventBus, cfg.Gateway.Token),
		Tools:      ihttp.NewToolsHandler(toolRegistry, stores.Approvals, cfg.Gateway.Token),
		Schedules:  ihttp.NewSchedulesHandler(stores.Schedules, sched, cfg.Gateway.Token),
		Deliveries: ihttp.NewDeliveriesHandler(stores.Deliveries, cfg.Gateway.Token),
		Runs:       ihttp.NewRunsHandler(stores, eventBus, cfg.Gateway.Token),
		Router:     ihttp.NewRouterHandler(smartRouter, cfg, cfg.Gateway.Token),
		Nodes:      ihttp.NewNodesHandler(nodeRegistry, nodeHandler, cfg.Gateway.Token),
		Admin:      ihttp.NewAdminHandler(cfg, cfgPath, restartCh, cfg.Admin.Token),
	}

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	port := cfg.Gateway.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("graceful shutdown initiated", "signal", sig)
		case <-restartCh:
			slog.Info("graceful restart requested via admin API")
		}
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("serialagent gateway starting", "version", Version, "addr", addr, "agents", len(agents))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}

// buildStores wires the flatfile-backed store implementations under the
// workspace's state directory (spec §4.7 "Storage" — standalone mode has no
// Postgres dependency). Each store keeps its records in its own
// subdirectory (runs/, schedules/, deliveries/, approvals/, transcripts/);
// session files sit at its top level.
func buildStores(cfg *config.Config) (*store.Stores, error) {
	dir := config.ExpandHome(cfg.Sessions.Storage)
	if dir == "" {
		dir = "~/.serialagent/state"
		dir = config.ExpandHome(dir)
	}

	runStore, err := store.NewFileRunStore(filepath.Join(dir, "runs"))
	if err != nil {
		return nil, err
	}
	scheduleStore, err := store.NewFileScheduleStore(filepath.Join(dir, "schedules"))
	if err != nil {
		return nil, err
	}
	deliveryStore, err := store.NewFileDeliveryStore(filepath.Join(dir, "deliveries"))
	if err != nil {
		return nil, err
	}
	approvalStore, err := store.NewFileApprovalStore(filepath.Join(dir, "approvals"))
	if err != nil {
		return nil, err
	}
	transcriptStore, err := store.NewFileTranscriptStore(filepath.Join(dir, "transcripts"))
	if err != nil {
		return nil, err
	}

	sessionMgr := sessions.NewManager(dir)

	return &store.Stores{
		Sessions:    sessionMgr,
		Transcripts: transcriptStore,
		Runs:        runStore,
		Schedules:   scheduleStore,
		Deliveries:  deliveryStore,
		Approvals:   approvalStore,
	}, nil
}

func agentIDs(agents map[string]turn.AgentConfig) []string {
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	return ids
}

