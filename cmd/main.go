package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/app"
	"github.com/gkanna939017-lab/local-talent/internal/config"
	"github.com/gkanna939017-lab/local-talent/internal/logutil"
)

func main() {
	configPath := flag.String("config", os.Getenv("LOCALTALENT_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logutil.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := app.NewServer(ctx, cfg, logger)
	cancel()
	if err != nil {
		zap.L().Fatal("server setup failed", zap.Error(err))
	}
	if err := srv.Run(); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
