package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"c1fapp/internal/config"
	"c1fapp/internal/enrich"
	"c1fapp/internal/feed"
	"c1fapp/internal/mapping"
	"c1fapp/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg, "c1fapp")

	classifier, err := mapping.NewClassifier(cfg.Confidence)
	if err != nil {
		logger.Error("invalid confidence table", "err", err)
		os.Exit(1)
	}
	client := feed.NewClient(cfg.Feed, nil, logger)
	orch := enrich.NewOrchestrator(client, classifier, enrich.Options{
		Workers:      cfg.Workers,
		DefaultLimit: cfg.EntitiesLimit,
		MaxLimit:     config.MaxEntitiesLimit,
	}, logger)
	srv := server.New(orch, client, cfg, logger)

	srv.StartMetrics(cfg.MetricsAddr)

	if cfg.GRPCAddr != "" {
		go func() {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := srv.StartGRPC(cfg.GRPCAddr); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "err", err)
		}
		srv.StopGRPC()
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	<-shutdownDone
}
