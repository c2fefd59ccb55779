package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/cache"
	"github.com/Dan9191/tea-service/internal/config"
	"github.com/Dan9191/tea-service/internal/handler"
	"github.com/Dan9191/tea-service/internal/integrations/cbr"
	"github.com/Dan9191/tea-service/internal/repository"
	"github.com/Dan9191/tea-service/internal/service"
	"github.com/Dan9191/tea-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx := context.Background()

	// Initialize storage
	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open scenario store: %v", err)
	}
	defer closeStore()
	logger.Infof("Scenario store: %s", cfg.StoreBackend)

	var projectionCache cache.Cache
	switch cfg.CacheBackend {
	case config.CacheMemory:
		projectionCache = cache.NewMemoryCache()
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.CacheTTL, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
		defer rc.Close()
		projectionCache = rc
	}

	// Initialize layers
	sender := email.NewSender(cfg, logger)
	svc := service.NewService(store, projectionCache, sender, logger, service.Options{
		CompareWorkers: cfg.CompareWorkers,
	})

	cbrClient := cbr.NewCBRClient(cfg, logger)
	refresher, err := cbr.NewRefresher(cbrClient, cfg.CBRRefreshSchedule, logger)
	if err != nil {
		logger.Fatalf("Failed to schedule key rate refresh: %v", err)
	}
	refresher.Start()
	defer refresher.Stop()

	h := handler.NewHandler(svc, refresher, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Errorf("Server failed: %v", err)
		return
	case <-quit:
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	logger.Info("Server exited")
}
