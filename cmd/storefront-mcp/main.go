// storefront-mcp serves the storefront client as MCP tools over Streamable HTTP.
// All callers share one storefront session, and so one cart.
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

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/session"
	"storefront/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize structured logger
	logger := initLogger(cfg.LogLevel, cfg.Environment)

	logger.Info("configuration loaded",
		slog.String("api_url", cfg.API.URL),
		slog.String("transport", string(cfg.API.Transport)),
		slog.String("environment", cfg.Environment),
		slog.String("session_file", cfg.Session.File),
	)

	client, err := newClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating storefront client: %w", err)
	}

	// Tool calls mount pages that fetch in parallel; they must share one session.
	if err := client.EnsureSession(ctx); err != nil {
		logger.Warn("could not establish storefront session", slog.String("error", err.Error()))
	}

	h := handler.New(client, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → rate limit → handler
	// Recovery must be outermost to catch panics from logging middleware
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	}
	if cfg.RateLimit > 0 {
		chain = append(chain, middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger).Handler)
	}
	httpHandler := middleware.Chain(chain...)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding tool calls time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// newClient builds the storefront API client from configuration.
// Without a session file the token lives in memory for the process lifetime.
func newClient(cfg *config.Config, logger *slog.Logger) (*catalog.Client, error) {
	store, err := session.NewStore(cfg.Session.File)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	rt, err := transport.New(cfg.API.Transport, cfg.API.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return catalog.New(catalog.Config{
		BaseURL:       cfg.API.URL,
		Session:       store,
		CookieName:    cfg.Session.CookieName,
		Transport:     rt,
		Timeout:       cfg.API.RequestTimeout,
		MinAPIVersion: cfg.API.MinAPIVersion,
		APIKey:        cfg.API.APIKey,
		Logger:        logger,
	})
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger(levelName, environment string) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
