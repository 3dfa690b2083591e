// ABOUTME: Gateway server wiring: routes, middleware chain, and lifecycle.
// ABOUTME: Run blocks until context cancellation, then shuts down gracefully.

package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/lumen-gateway/internal/config"
	"github.com/2389/lumen-gateway/internal/logsink"
	"github.com/2389/lumen-gateway/internal/orchestrator"
	"github.com/2389/lumen-gateway/internal/session"
)

// sessionHeader carries the client-generated opaque session identifier.
const sessionHeader = "X-Session-ID"

// accessKeyHeader carries the shared access key.
const accessKeyHeader = "X-Access-Key"

// Gateway is the HTTP layer over the orchestrator, sessions, and log sink.
type Gateway struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	sessions *session.Manager
	sink     *logsink.Sink
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates a Gateway; call Run to serve.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, sessions *session.Manager, sink *logsink.Sink, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		cfg:      cfg,
		orch:     orch,
		sessions: sessions,
		sink:     sink,
		logger:   logger,
	}
	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

// Routes builds the full handler tree with middleware applied.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.Handle("/api/control", g.authenticated(http.HandlerFunc(g.handleControl)))
	mux.Handle("/api/logs", g.authenticated(http.HandlerFunc(g.handleLogs)))
	return g.cors(mux)
}

// cors sets permissive browser headers and answers preflight requests.
func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+accessKeyHeader+", "+sessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticated enforces the shared access key and the session header.
func (g *Gateway) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(accessKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(g.cfg.Auth.AccessKey)) != 1 {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "missing or invalid access key")
			return
		}
		if r.Header.Get(sessionHeader) == "" {
			writeErrorCode(w, http.StatusBadRequest, "missing_session", "the "+sessionHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is canceled, then shuts down gracefully. The
// session sweeper runs alongside and stops with the server.
func (g *Gateway) Run(ctx context.Context) error {
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go g.sessions.RunSweeper(sweepCtx, g.sink.Purge)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	g.logger.Info("http server stopped")
	return nil
}
