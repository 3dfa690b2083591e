// ABOUTME: Entry point for the lifx-worker MCP stdio server.
// ABOUTME: One instance serves exactly one gateway request, then exits.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389/lumen-gateway/internal/lifx"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Stdout belongs to the JSON-RPC stream; all diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	token := os.Getenv("LIFX_TOKEN")
	if token == "" {
		return fmt.Errorf("LIFX_TOKEN is not set")
	}
	if err := lifx.ValidateToken(token); err != nil {
		return err
	}

	// LIFX_API_URL overrides the endpoint for tests and local fakes.
	client := lifx.NewClient(os.Getenv("LIFX_API_URL"), token, logger)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lifx-worker",
		Version: version,
	}, nil)
	lifx.RegisterTools(server, client, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("lifx-worker serving on stdio", "version", version)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func logLevel() slog.Level {
	if os.Getenv("LIFX_WORKER_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
