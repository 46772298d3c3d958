// Package main is the entry point for the link manager server binary. It
// dispatches three subcommands — serve, migrate, and version — via a simple
// switch on os.Args so the binary's full CLI surface is readable in one place
// without requiring a cobra dependency. The serve command runs auto-migration
// on startup so freshly deployed containers never need a separate migration
// step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evolane/linkmanager/internal/api"
	"github.com/evolane/linkmanager/internal/audit"
	"github.com/evolane/linkmanager/internal/cms"
	"github.com/evolane/linkmanager/internal/config"
	"github.com/evolane/linkmanager/internal/db"
	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/evolane/linkmanager/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("Link Manager v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Structured logger first so everything below logs in the configured
	// format and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	telemetry.StartDBStatsCollector(database.DB)

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(database.DB, "up"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		schemaVersion, dirty, err := db.MigrationVersion(database.DB)
		if err != nil {
			slog.Warn("failed to read migration version", "error", err)
		} else {
			slog.Info("database schema ready", "version", schemaVersion, "dirty", dirty)
		}
	}

	recorder, sink, err := buildRecorder(cfg, database)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	var cmsResolver cms.Resolver
	if cfg.CMS.BaseURL != "" {
		cmsResolver = cms.NewBaseURLResolver(cfg.CMS.BaseURL, cfg.CMS.Pages)
	}

	// Prometheus on a dedicated port so the scrape path stays off the
	// public ingress.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	router := api.NewRouter(cfg, database, recorder, cmsResolver)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.Server.GetAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRecorder wires the audit trail: the log repository as primary store,
// the rotating file sink as fallback. A disabled audit section yields a nil
// recorder, which every caller tolerates.
func buildRecorder(cfg *config.Config, database *sqlx.DB) (*audit.Recorder, audit.Sink, error) {
	if !cfg.Audit.Enabled {
		return nil, nil, nil
	}

	var sink audit.Sink
	if cfg.Audit.Fallback.Enabled {
		fileSink, err := audit.NewFileSink(cfg.Audit.Fallback.Path, cfg.Audit.Fallback.MaxSizeMB, cfg.Audit.Fallback.MaxBackups)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit fallback sink: %w", err)
		}
		sink = fileSink
	}

	return audit.NewRecorder(repositories.NewLogRepository(database), sink), sink, nil
}

// runMigrations applies or rolls back the schema and records the event in the
// activity log (best-effort: a fresh "down" leaves no table to record into).
func runMigrations(cfg *config.Config, direction string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	action := models.ActionInstall
	if direction == "down" {
		action = models.ActionUninstall
		// Record before the tables disappear.
		recordModuleEvent(database, action)
	}

	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration %s failed: %w", direction, err)
	}
	slog.Info("migrations applied", "direction", direction)

	if direction != "down" {
		recordModuleEvent(database, action)
	}
	return nil
}

func recordModuleEvent(database *sqlx.DB, action models.LogAction) {
	logs := repositories.NewLogRepository(database)
	entry := &models.LogEntry{
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceModule,
		Action:       action,
		Message:      fmt.Sprintf("Link manager schema %sed", action),
	}
	if _, err := logs.Append(context.Background(), entry); err != nil {
		slog.Warn("failed to record module event", "action", action, "error", err)
	}
}
