package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"reversus/internal/config"
	"reversus/internal/httpapi"
	"reversus/internal/persist"
	"reversus/internal/room"
	"reversus/internal/session"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.FromEnv()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	var recorder session.Recorder = persist.Noop{}
	if cfg.DatabaseURL != "" {
		rec, err := persist.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		recorder = rec
		logger.Info("match results will be recorded")
	}

	ctx := context.Background()
	dir := room.NewDirectory(ctx, room.Params{
		Recorder: recorder,
		Logger:   logger,
	})

	handler := httpapi.SetupRoutes(dir, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
