// ABOUTME: Backend composition root: builds store, provider, catalog bridge,
// ABOUTME: executor, completion client, and orchestrator, and runs the HTTP API.

package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/francescoreconditi/openai-mcp/internal/audit"
	"github.com/francescoreconditi/openai-mcp/internal/catalog"
	"github.com/francescoreconditi/openai-mcp/internal/completion"
	"github.com/francescoreconditi/openai-mcp/internal/config"
	"github.com/francescoreconditi/openai-mcp/internal/executor"
	"github.com/francescoreconditi/openai-mcp/internal/health"
	"github.com/francescoreconditi/openai-mcp/internal/metrics"
	"github.com/francescoreconditi/openai-mcp/internal/orchestrator"
	"github.com/francescoreconditi/openai-mcp/internal/provider"
	"github.com/francescoreconditi/openai-mcp/internal/store"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// DefaultShutdownTimeout bounds the graceful drain when the config carries
// no explicit value.
const DefaultShutdownTimeout = 5 * time.Second

// Backend owns the chat service components and their lifecycle.
// It builds everything from config, serves the HTTP API, and shuts the
// components down in order when Run returns.
type Backend struct {
	config       *config.Config
	store        *store.MemoryStore
	orchestrator *orchestrator.Orchestrator
	health       *health.Aggregator
	ledger       *audit.Ledger
	metrics      *metrics.Metrics
	provider     tools.Provider
	httpServer   *http.Server
	logger       *slog.Logger

	// metricsHandler serves the registry behind /metrics; nil when metrics
	// are disabled.
	metricsHandler http.Handler
}

// New creates a Backend from the given configuration. The returned instance
// is fully wired but idle; call Run to start serving.
func New(cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Backend{
		config: cfg,
		store:  store.New(logger),
		logger: logger.With("component", "backend"),
	}

	if cfg.Metrics.Enabled {
		// A private registry keeps the instruments scoped to this instance.
		registry := prometheus.NewRegistry()
		b.metrics = metrics.New(registry)
		b.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	if cfg.Audit.Enabled {
		ledger, err := audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening audit ledger: %w", err)
		}
		b.ledger = ledger
	}

	client, err := completion.NewOpenAI(cfg.Completion.APIKey, cfg.Completion.BaseURL, completion.Options{
		Model:       cfg.Completion.Model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	var schemas orchestrator.SchemaSource
	var dispatcher orchestrator.Dispatcher
	if cfg.Tools.Enabled {
		prov, err := buildProvider(cfg.Tools, logger)
		if err != nil {
			return nil, err
		}
		b.provider = prov

		bridge := catalog.New(prov, catalog.Options{
			TTL:          cfg.Tools.CatalogTTL,
			Grace:        cfg.Tools.CatalogGrace,
			FetchTimeout: cfg.Tools.FetchTimeout,
		}, b.metrics, logger)
		schemas = bridge
		dispatcher = executor.New(prov, executor.Options{
			Timeout:        cfg.Tools.ExecuteTimeout,
			RetryBaseDelay: cfg.Tools.RetryBaseDelay,
			MaxAttempts:    cfg.Tools.MaxAttempts,
			MaxConcurrent:  cfg.Tools.MaxConcurrent,
		}, logger)
		b.health = health.New(bridge, health.Options{
			ProbeInterval: cfg.Health.ProbeInterval,
			ProbeTimeout:  cfg.Health.ProbeTimeout,
		}, logger)
	} else {
		logger.Info("tool support disabled, turns run as plain completions")
	}

	orchOpts := orchestrator.Options{
		MaxRounds: cfg.Orchestrator.MaxRounds,
		Metrics:   b.metrics,
	}
	if b.ledger != nil {
		orchOpts.Recorder = b.ledger
	}
	b.orchestrator = orchestrator.New(b.store, client, schemas, dispatcher, orchOpts, logger)

	b.httpServer = &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return b, nil
}

// buildProvider selects the tool transport from configuration.
func buildProvider(cfg config.ToolsConfig, logger *slog.Logger) (tools.Provider, error) {
	switch cfg.Transport {
	case "http":
		return provider.NewHTTP(cfg.BaseURL, nil, logger), nil
	case "mcp":
		return provider.NewMCP(provider.MCPOptions{
			URL:     cfg.MCP.URL,
			Command: cfg.MCP.Command,
			Args:    cfg.MCP.Args,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported tools transport %q", cfg.Transport)
	}
}

// Handler returns the backend's HTTP API surface.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", b.handleChat)
	mux.HandleFunc("/conversations", b.handleListConversations)
	mux.HandleFunc("/conversations/", b.handleConversationRoutes)
	mux.HandleFunc("/health", b.handleHealth)
	mux.HandleFunc("/stats/tools", b.handleToolStats)
	mux.HandleFunc("/stats/recent", b.handleRecentExecutions)
	if b.metricsHandler != nil {
		mux.Handle(b.config.Metrics.Path, b.metricsHandler)
	}
	return mux
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown, or the first error.
func (b *Backend) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", b.httpServer.Addr, err)
	}

	if b.health != nil {
		b.health.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := b.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		b.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		b.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := b.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (b *Backend) gracefulShutdown() error {
	timeout := b.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return b.Shutdown(ctx)
}

// Shutdown drains the HTTP server and closes the components, joining errors.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.logger.Info("shutting down backend")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", b.httpServer.Shutdown(ctx))

	if b.health != nil {
		b.health.Close()
	}
	if closer, ok := b.provider.(io.Closer); ok {
		errs = appendCloseError(errs, "provider close", closer.Close())
	}
	if b.ledger != nil {
		errs = appendCloseError(errs, "ledger close", b.ledger.Close())
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}
