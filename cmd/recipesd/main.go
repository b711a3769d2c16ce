package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/app"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("RECIPES_CONFIG"), "YAML configuration file")
	flag.Parse()

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("recipesd.config.load_failed", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("recipesd.config.invalid", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("recipesd.setup.failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("recipesd.store.close_failed", "error", err)
		}
	}()

	if a.Store != nil {
		if err := a.Store.HealthCheck(ctx); err != nil {
			logger.Error("recipesd.store.unhealthy", "error", err)
			os.Exit(1)
		}
	}

	var svc *server.ExtractorService
	if a.Store != nil {
		svc = server.NewExtractorService(a.Processor, a.Store, a.Exporter, logger)
	} else {
		svc = server.NewExtractorService(a.Processor, nil, nil, logger)
	}
	grpcServer, hs := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("recipesd.listen_failed", "addr", addr, "error", err)
		os.Exit(1)
	}

	if dir := cfg.Server.WatchDir; dir != "" {
		go func() {
			err := a.Watch(ctx, app.WatchOptions{
				Dir:         dir,
				Contributor: cfg.Server.WatchContributor,
				Debounce:    cfg.Server.WatchDebounce,
				Workers:     cfg.Server.Workers,
				JobTimeout:  cfg.Server.JobTimeout,
				InitialScan: true,
			})
			if err != nil {
				logger.Error("recipesd.watch.failed", "dir", dir, "error", err)
			}
		}()
	}

	logger.Info("recipesd.listening", "addr", addr, "store", cfg.Store.Backend, "watch_dir", cfg.Server.WatchDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("recipesd.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("recipesd.shutting_down")
	hs.Shutdown()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}
}
