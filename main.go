package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/config"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/mcp"
	"github.com/datalens-ai/datalens-engine/pkg/mcp/tools"
	"github.com/datalens-ai/datalens-engine/pkg/middleware"
	"github.com/datalens-ai/datalens-engine/pkg/nlq"
	"github.com/datalens-ai/datalens-engine/pkg/services"

	// Datasource adapters register themselves on import.
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/csvfile"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/jsonfile"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/mongodb"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/mssql"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/postgres"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/sqlitefile"
	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/sqlscript"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	flag.Parse()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Int("query_max_rows", cfg.Query.MaxRows))

	sessions := services.NewSessionManager(services.SessionOptions{
		MaxRows:            cfg.Query.MaxRows,
		DefaultSampleRows:  cfg.Query.DefaultSampleRows,
		ColumnSampleValues: cfg.Introspection.ColumnSampleValues,
		DocumentSampleSize: cfg.Introspection.DocumentSampleSize,
	}, logger)
	defer sessions.CloseAll()

	generator, err := nlq.NewGenerator(cfg.Generator, logger)
	if err != nil {
		logger.Fatal("failed to create query generator", zap.Error(err))
	}
	if generator != nil {
		logger.Info("query generation enabled",
			zap.String("provider", cfg.Generator.Provider),
			zap.String("model", generator.Model()))
	}

	openSavedSources(cfg, sessions, logger)

	mcpServer := mcp.NewServer("datalens-engine", cfg.Version, logger)
	tools.RegisterAll(mcpServer.MCP(), &tools.Deps{
		Sessions:  sessions,
		Generator: generator,
		Logger:    logger,
	})

	if *stdio {
		if err := mcpServer.ServeStdio(); err != nil {
			logger.Fatal("stdio server failed", zap.Error(err))
		}
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer()))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + cfg.Version + `"}`))
	})

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: middleware.RequestLogger(logger)(mux)}

	go func() {
		logger.Info("starting datalens-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}

// openSavedSources opens every catalog entry at startup. Failures are
// logged and skipped so one bad descriptor doesn't block the server.
func openSavedSources(cfg *config.Config, sessions *services.SessionManager, logger *zap.Logger) {
	catalog, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Warn("sources catalog not loaded", zap.Error(err))
		return
	}

	for _, src := range catalog.Sources {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		session, err := sessions.Open(ctx, src.Kind, src.Settings)
		cancel()
		if err != nil {
			logger.Warn("saved source failed to open",
				zap.String("name", src.Name),
				zap.String("kind", src.Kind),
				zap.Error(err))
			continue
		}
		logger.Info("saved source opened",
			zap.String("name", src.Name),
			zap.String("kind", src.Kind),
			zap.String("session_id", session.ID().String()))
	}
}
