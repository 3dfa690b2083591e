// ABOUTME: Entry point for the lumen-gateway control server.
// ABOUTME: Wires config, log sink, supervisor, LLM client, and HTTP gateway.

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/lumen-gateway/internal/config"
	"github.com/2389/lumen-gateway/internal/gateway"
	"github.com/2389/lumen-gateway/internal/llm"
	"github.com/2389/lumen-gateway/internal/logsink"
	"github.com/2389/lumen-gateway/internal/orchestrator"
	"github.com/2389/lumen-gateway/internal/session"
	"github.com/2389/lumen-gateway/internal/worker"
)

// version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _
| |_   _ _ __ ___   ___ _ __
| | | | | '_ ' _ \ / _ \ '_ \
| | |_| | | | | | |  __/ | | |
|_|\__,_|_| |_| |_|\___|_| |_|
`

// getConfigPath returns the path to the gateway config file.
// Priority: LUMEN_CONFIG env var > XDG_CONFIG_HOME/lumen/gateway.yaml > ~/.config/lumen/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LUMEN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lumen", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: lumen-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the gateway server")
		fmt.Println("  init     Create a starter config file")
		fmt.Println("  health   Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sink := logsink.New(logsink.Options{
		MaxEntries:     cfg.Logs.BufferSize,
		MaxSessions:    cfg.Logs.MaxSessions,
		SystemKeywords: cfg.Logs.SystemKeywords,
	})
	logger := slog.New(logsink.NewHandler(buildHandler(cfg.Logging), sink))

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Worker:  %s\n", cfg.Worker.Command)
	green.Print("    ▶ ")
	fmt.Printf("Model:   %s\n", cfg.LLM.Model)
	fmt.Println()

	logger.Info("starting lumen-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"worker", cfg.Worker.Command,
	)

	supervisor := worker.NewSupervisor(worker.Config{
		Command:        cfg.Worker.Command,
		Args:           cfg.Worker.Args,
		SpawnTimeout:   cfg.Worker.SpawnTimeout,
		TerminateGrace: cfg.Worker.TerminateGrace,
		InitTimeout:    cfg.Worker.InitTimeout,
		MethodTimeout:  cfg.Worker.MethodTimeout,
	}, logger)

	completer := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, logger)

	orch := orchestrator.New(
		orchestrator.NewSupervisorSpawner(supervisor),
		completer,
		orchestrator.Options{
			MaxConcurrent: cfg.Worker.MaxConcurrent,
			MaxToolRounds: cfg.LLM.MaxToolRounds,
		},
		logger,
	)

	sessions := session.NewManager(session.NewMemoryStore(), session.Options{
		RatePerMinute: cfg.Sessions.RatePerMinute,
		RateBurst:     cfg.Sessions.RateBurst,
		MaxAge:        cfg.Sessions.MaxAge,
		SweepInterval: cfg.Sessions.SweepInterval,
	}, logger)

	gw := gateway.New(cfg, orch, sessions, sink, logger)
	return gw.Run(ctx)
}

func buildHandler(cfg config.LoggingConfig) slog.Handler {
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

	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return &colorHandler{level: level}
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

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

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

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
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

func runInit() error {
	configPath := getConfigPath()

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	if _, err := os.Stat(configPath); err == nil {
		cyan.Printf("  Config already exists: %s\n", configPath)
		return nil
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return fmt.Errorf("generating access key: %w", err)
	}
	accessKey := base64.RawURLEncoding.EncodeToString(keyBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configContent := fmt.Sprintf(`# lumen-gateway configuration
# Generated by lumen-gateway init

server:
  http_addr: "localhost:8080"
  dev_mode: false

auth:
  access_key: "%s"

worker:
  command: "lifx-worker"
  max_concurrent: 5
  spawn_timeout: "30s"
  terminate_grace: "5s"
  init_timeout: "5s"
  method_timeout: "10s"

llm:
  base_url: "https://api.openai.com/v1"
  api_key: "${LUMEN_LLM_API_KEY}"
  model: "gpt-4o-mini"
  max_tool_rounds: 8

sessions:
  rate_per_minute: 20
  rate_burst: 5
  max_age: "30m"
  sweep_interval: "5m"

logs:
  buffer_size: 500
  max_sessions: 50
  query_limit_cap: 100

logging:
  level: "info"
  format: "text"
`, accessKey)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println("  Set LUMEN_LLM_API_KEY in the server environment before serving.")
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
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

	fmt.Println("healthy")
	return nil
}
