package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/api"
	"github.com/danghamo/stride/pkg/config"
	"github.com/danghamo/stride/pkg/redisx"
)

const version = "0.1.0"

// @title stride API
// @version 0.1.0
// @description Activity recording service: JSON-RPC 2.0 over HTTP with a server-sent event feed.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, log, err := config.Initialize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stride server",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	redisClient, err := redisx.NewClientFromConfig(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	apiServer, err := api.NewServer(cfg, version, log, redisClient)
	if err != nil {
		log.Fatal("Failed to create API server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := apiServer.Start(ctx); err != nil {
		log.Error("Server error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server gracefully stopped")
}
