package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openroam/tripgraph/internal/config"
	"github.com/openroam/tripgraph/internal/graph"
	"github.com/openroam/tripgraph/internal/layout"
	"github.com/openroam/tripgraph/internal/logging"
	"github.com/openroam/tripgraph/internal/relay"
	"github.com/openroam/tripgraph/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient := buildGraphClient(ctx, logger, cfg)
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	hub := relay.NewHub(logger)
	syncHandler := relay.NewHandler(logger, hub, "/sync/", cfg.Sync.WriteTimeout)
	reports := server.NewReportHandlers(logger, hub, layout.Config{
		NodeWidth:  cfg.Layout.NodeWidth,
		NodeHeight: cfg.Layout.NodeHeight,
		RankSep:    cfg.Layout.RankSep,
		NodeSep:    cfg.Layout.NodeSep,
	})

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.ArchiveHealthService{Client: graphClient},
		Sync:             syncHandler,
		Reports:          reports,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	if graphClient != nil {
		archiver := relay.NewArchiver(logger, hub, graphClient, cfg.Graph.ArchiveInterval)
		go archiver.Run(ctx)
	}

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildGraphClient connects the optional archive database. Archiving is off
// when no URI is configured; a failed connection downgrades to off rather
// than refusing to start the relay.
func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) graph.Client {
	if cfg.Graph.URI == "" {
		logger.Info("graph archive disabled: no GRAPH_URI configured")
		return nil
	}

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Error("graph archive disabled: connection failed", "error", err)
		return nil
	}
	return client
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
