package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/config"
	"github.com/Dan9191/tea-service/internal/repository"
	"github.com/Dan9191/tea-service/internal/validation"
)

func main() {
	refPath := flag.String("reference", "scenario_metrics_summary.csv", "reference metrics CSV")
	tolerance := flag.Float64("tolerance", validation.DefaultTolerance, "absolute tolerance per metric")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	f, err := os.Open(*refPath)
	if err != nil {
		logger.Fatalf("Failed to open reference: %v", err)
	}
	ref, err := validation.ReadReference(f)
	f.Close()
	if err != nil {
		logger.Fatalf("Failed to parse reference: %v", err)
	}

	ctx := context.Background()
	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open scenario store: %v", err)
	}
	defer closeStore()

	results, err := validation.Run(ctx, store, ref, *tolerance)
	if err != nil {
		logger.Fatalf("Validation failed: %v", err)
	}
	if failed := validation.Print(os.Stdout, results); failed > 0 {
		closeStore()
		os.Exit(1)
	}
}
