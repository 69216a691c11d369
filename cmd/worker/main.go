package main

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"
	"Go_Shelf/internal/worker"
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.InitConfig()
	if err := logger.Init(config.AppConfig.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.L.Sync()

	repo.InitDB()
	repo.InitRedis()
	storage.InitMinio()
	if repo.Db == nil {
		logger.L.Fatal("cleanup worker needs a database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go worker.RunSweeper(ctx, config.AppConfig.CleanupSweepInterval, config.AppConfig.CleanupSweepAge)

	logger.L.Info("cleanup worker started")
	if err := worker.RunCleanupWorker(ctx); err != nil {
		logger.L.Fatal("cleanup worker stopped", "error", err)
	}
}
