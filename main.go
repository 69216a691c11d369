package main

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/mq"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/service"
	"Go_Shelf/internal/storage"
	"Go_Shelf/router"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	if err := logger.Init(config.AppConfig.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.L.Sync()
	if config.AppConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo.InitDB()
	repo.InitRedis()
	storage.InitMinio()
	if err := service.PrepareAdminCredentials(); err != nil {
		logger.L.Fatal("hash admin password", "error", err)
	}
	if config.AppConfig.AdminAuthEnabled && config.AppConfig.AdminPasswordHash == "" {
		logger.L.Warn("no admin password configured, admin login disabled")
	}
	if config.AppConfig.AdminAuthEnabled && !config.AppConfig.JWTConfigured() {
		if config.AppConfig.IsProduction() {
			logger.L.Fatal("JWT_SECRET is unset or a placeholder")
		}
		logger.L.Warn("JWT_SECRET is unset or a placeholder, admin routes will answer 503")
	}

	srv := &http.Server{
		Addr:              ":" + config.AppConfig.Port,
		Handler:           router.InitRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("server listening", "port", config.AppConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("graceful shutdown failed", "error", err)
	}
	mq.ClosePublisher()
}
