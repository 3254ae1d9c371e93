package main

import (
	"net/http"

	"securenotes/config"
	"securenotes/config/database"
	"securenotes/pkg/logger"
	"securenotes/pkg/metrics"
	"securenotes/router"
	"securenotes/socket"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	db := database.Connect(cfg.ConnString())
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		logger.Sugar.Fatalf("Failed to initialize schema: %v", err)
	}

	m := metrics.New()

	hub := socket.NewHub()
	go hub.Run()

	handler := router.Setup(db, hub, cfg, m)

	logger.Sugar.Infof("Backend listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
