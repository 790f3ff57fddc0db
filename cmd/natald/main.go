// CLAUDE:SUMMARY Entry point for the natald gateway — chi router, shield stack, geocode/chart/generation strategies, SQLite audit.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/natal/audit"
	"github.com/hazyhaar/natal/chartsvc"
	"github.com/hazyhaar/natal/dbopen"
	"github.com/hazyhaar/natal/gateway"
	"github.com/hazyhaar/natal/geocode"
	"github.com/hazyhaar/natal/reading"
	"github.com/hazyhaar/natal/shield"
)

func main() {
	configPath := env("NATALD_CONFIG", "natald.yaml")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
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

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := gateway.LoadConfig(configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Gateway DB: shield rules + audit trail.
	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(shield.Schema),
		dbopen.WithSchema(audit.Schema))
	if err != nil {
		slog.Error("db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	auditLogger := audit.NewLogger(db, 1000)
	defer auditLogger.Close()

	// Geocode provider strategy.
	var provider geocode.Provider
	switch cfg.Geocode.Provider {
	case "opencage":
		provider, err = geocode.NewOpenCage(cfg.Geocode.OpenCageKey, cfg.GeocodeTimeout())
		if err != nil {
			slog.Error("geocode provider", "error", err)
			os.Exit(1)
		}
	default:
		provider = geocode.NewNominatim(cfg.Geocode.UserAgent, cfg.GeocodeTimeout())
	}

	tz, err := geocode.NewTZF()
	if err != nil {
		slog.Error("timezone finder", "error", err)
		os.Exit(1)
	}

	resolver := geocode.NewResolver(geocode.Config{
		Provider: provider,
		Timezone: tz,
		Timeout:  cfg.GeocodeTimeout(),
		Logger:   logger,
	})

	// Chart service client.
	charts, err := chartsvc.NewClient(chartsvc.ClientConfig{
		Endpoint: cfg.Chart.Endpoint,
		Timeout:  cfg.ChartTimeout(),
	})
	if err != nil {
		slog.Error("chart client", "error", err)
		os.Exit(1)
	}

	// Generation strategy.
	var generator reading.Generator
	switch cfg.Generation.Provider {
	case "genai":
		generator, err = reading.NewGenAIGenerator(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
	default:
		generator, err = reading.NewHTTPGenerator(reading.HTTPConfig{
			Endpoint: cfg.Generation.Endpoint,
			Timeout:  cfg.GenerationTimeout(),
		})
	}
	if err != nil {
		slog.Error("generator", "error", err)
		os.Exit(1)
	}

	service := gateway.NewService(gateway.ServiceConfig{
		Geocoder:          resolver,
		Charts:            charts,
		Generator:         generator,
		Orbs:              cfg.Chart.Orbs,
		GeocodeTimeout:    cfg.GeocodeTimeout(),
		ChartTimeout:      cfg.ChartTimeout(),
		GenerationTimeout: cfg.GenerationTimeout(),
		Logger:            logger,
		Audit:             auditLogger,
	})

	handler := gateway.NewHandler(service, logger)
	router, mm, rl := gateway.NewRouter(handler, db, cfg)
	mm.StartReloader(ctx.Done())
	rl.StartReloader(ctx.Done())
	auditLogger.StartRetention(ctx.Done(), 6*time.Hour, cfg.AuditRetentionDays)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("natald starting", "addr", cfg.Listen)
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
