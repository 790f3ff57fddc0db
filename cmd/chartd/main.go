// CLAUDE:SUMMARY Entry point for the chartd chart service — HTTP surface plus optional MCP stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/natal/chart"
	"github.com/hazyhaar/natal/chartsvc"
	"github.com/hazyhaar/natal/ephem"
)

func main() {
	configPath := env("CHARTD_CONFIG", "chartd.yaml")
	logLevel := env("LOG_LEVEL", "info")
	mcpTransport := env("MCP_TRANSPORT", "")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := chartsvc.LoadConfig(configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	backend, err := ephem.New(ephem.Config{
		Endpoint: cfg.EphemerisEndpoint,
		Timeout:  cfg.EphemerisTimeoutDuration(),
	})
	if err != nil {
		slog.Error("ephemeris backend", "error", err)
		os.Exit(1)
	}

	builder := chart.NewBuilder(chart.BuilderConfig{Ephemeris: backend, Logger: logger})
	handler := chartsvc.NewHandler(chartsvc.HandlerConfig{
		Builder: builder,
		Orbs:    cfg.Orbs,
		Logger:  logger,
	})

	// Optional MCP stdio surface over the same chart pipeline.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "chartd",
			Version: "1.0.0",
		}, nil)
		handler.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("chartd starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
