// ABOUTME: Entry point for the chat-backend conversation service
// ABOUTME: Serves the chat HTTP API backed by completion and tool providers

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/francescoreconditi/openai-mcp/internal/backend"
	"github.com/francescoreconditi/openai-mcp/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
      _           _        _                _                  _
  ___| |__   __ _| |_     | |__   __ _  ___| | _____ _ __   __| |
 / __| '_ \ / _' | __|____| '_ \ / _' |/ __| |/ / _ \ '_ \ / _' |
| (__| | | | (_| | ||_____| |_) | (_| | (__|   <  __/ | | | (_| |
 \___|_| |_|\__,_|\__|    |_.__/ \__,_|\___|_|\_\___|_| |_|\__,_|
`

// resolveConfigPath returns the config file to load.
// Priority: explicit argument > CHAT_BACKEND_CONFIG env var > ./config.yaml
func resolveConfigPath(args []string) (path string, explicit bool) {
	if len(args) > 0 {
		return args[0], true
	}
	if envPath := os.Getenv("CHAT_BACKEND_CONFIG"); envPath != "" {
		return envPath, true
	}
	return "config.yaml", false
}

// loadConfig loads the resolved config file. When no file was named and none
// exists at the default location, the built-in defaults apply so the backend
// runs from a bare .env. The returned path is empty in that case.
func loadConfig(args []string) (*config.Config, string, error) {
	path, explicit := resolveConfigPath(args)
	if !explicit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: chat-backend <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve [config]   Start the chat backend server")
		fmt.Println("  health [url]     Check backend health")
		fmt.Println("  version          Print the version")
		os.Exit(1)
	}

	// Load .env before anything reads the environment. Missing files are fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx, os.Args[2:])
	case "version":
		fmt.Printf("chat-backend %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, args []string) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, configPath, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configDisplay := configPath
	if configDisplay == "" {
		configDisplay = "built-in defaults"
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configDisplay)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.ListenAddr())
	green.Print("    ▶ ")
	fmt.Printf("Model:   %s\n", cfg.Completion.Model)

	// Tool provider status
	if cfg.Tools.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tools:   ")
		cyan.Print(cfg.Tools.Transport)
		switch cfg.Tools.Transport {
		case "http":
			gray.Printf(" (%s)", cfg.Tools.BaseURL)
		case "mcp":
			if cfg.Tools.MCP.URL != "" {
				gray.Printf(" (%s)", cfg.Tools.MCP.URL)
			} else {
				gray.Printf(" (%s)", cfg.Tools.MCP.Command)
			}
		}
		fmt.Println()
	} else {
		yellow.Print("    ▶ ")
		fmt.Println("Tools:   disabled")
	}

	if cfg.Audit.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Audit:   %s\n", cfg.Audit.Path)
	}

	fmt.Println()

	logger.Info("starting chat-backend",
		"config", configDisplay,
		"http_addr", cfg.Server.ListenAddr(),
		"model", cfg.Completion.Model,
		"tools_enabled", cfg.Tools.Enabled,
	)

	// Create and run backend
	b, err := backend.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	return b.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
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

func runHealth(ctx context.Context, args []string) error {
	url, err := healthURL(args)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var status backend.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Println("healthy")
	if status.Tools.Online {
		fmt.Printf("tools: %d available\n", status.Tools.ToolCount)
	} else {
		fmt.Println("tools: offline")
	}
	return nil
}

// healthURL picks the endpoint to probe: an explicit URL argument wins,
// otherwise the configured listen address.
func healthURL(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	cfg, _, err := loadConfig(nil)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	// A wildcard bind address is not dialable; probe loopback instead.
	host := cfg.Server.Host
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/health", host, cfg.Server.Port), nil
}
