// ABOUTME: Standalone tool server exposing the built-in demonstration tools
// ABOUTME: Usage: tool-server [-addr :8001] [-mcp] [-json] [-debug]

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/francescoreconditi/openai-mcp/internal/toolserver"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _              _
| |_ ___   ___ | |      ___  ___ _ ____   _____ _ __
| __/ _ \ / _ \| |_____/ __|/ _ \ '__\ \ / / _ \ '__|
| || (_) | (_) | |_____\__ \  __/ |   \ V /  __/ |
 \__\___/ \___/|_|     |___/\___|_|    \_/ \___|_|
`

func main() {
	addr := flag.String("addr", ":8001", "HTTP listen address")
	mcpEnabled := flag.Bool("mcp", false, "serve the MCP endpoint at /mcp")
	jsonLogs := flag.Bool("json", false, "emit JSON logs")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*addr, *mcpEnabled, *jsonLogs, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, mcpEnabled, jsonLogs, debug bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(jsonLogs, debug)

	registry := toolserver.NewRegistry(logger)
	if err := registry.RegisterAll(toolserver.Builtins()); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", toolserver.NewServer(registry, logger).Handler())
	if mcpEnabled {
		mux.Handle("/mcp", toolserver.MCPHandler(registry, "tool-server", version))
	}

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("HTTP:  %s\n", addr)
	green.Print("    ▶ ")
	fmt.Printf("Tools: %d\n", registry.Len())
	if mcpEnabled {
		green.Print("    ▶ ")
		fmt.Printf("MCP:   ")
		cyan.Println("/mcp")
	}
	fmt.Println()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tool server listening",
			"addr", ln.Addr().String(),
			"tools", registry.Len(),
			"mcp", mcpEnabled,
		)
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down tool server")
	case serverErr = <-errCh:
		logger.Error("server error", "error", serverErr)
	}

	// Uses context.Background() intentionally since the original context is
	// already canceled.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func setupLogger(jsonLogs, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
