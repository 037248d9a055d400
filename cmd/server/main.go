package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cardmatch/memory-backend/internal/board"
	"github.com/cardmatch/memory-backend/internal/config"
	"github.com/cardmatch/memory-backend/internal/engine"
	"github.com/cardmatch/memory-backend/internal/httpapi"
	"github.com/cardmatch/memory-backend/internal/hub"
)

func main() {
	_ = godotenv.Load() // .env is optional

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("bad configuration", zap.Error(err))
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, hub.Options{
		PairCount: cfg.PairCount,
		Symbols:   board.DefaultSymbols,
		Rules: engine.Rules{
			RevealDelayMS:    cfg.RevealDelayMS,
			SkipDisconnected: cfg.SkipDisconnected,
		},
		IdleAfter: cfg.IdleTimeout,
		Logger:    logger,
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
