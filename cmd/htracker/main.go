package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"htracker/internal/amqp"
	"htracker/internal/cache"
	"htracker/internal/cli"
	apphttp "htracker/internal/http"
	applog "htracker/internal/log"
	"htracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)

	// AMQP is optional: without it entries are still written locally and the
	// worker's pending scan picks them up later.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without queue publishing",
				applog.FieldError, err)
		} else {
			amqpClient = client
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	trackerCache := services.NewTrackerCache(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(trackerCache)
	cacheManager.StartCleanup(cfg.CacheTTL)

	trackers := services.NewTrackerService(store, trackerCache)
	entries := services.NewEntryService(store, amqpClient, trackerCache)

	srv := apphttp.NewServer(":"+cfg.Port, trackers, entries, store, cfg.DefaultUser)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if err := entries.Close(); err != nil {
			logger.Error("Cleanup error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting htracker server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
