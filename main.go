package main

import (
	"context"
	"net/http"

	"guidebook/config"
	"guidebook/config/database"
	"guidebook/pkg/logger"
	"guidebook/pkg/metrics"
	"guidebook/router"
	"guidebook/socket"
	"guidebook/store"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, foundDotenv := config.Load()

	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	if !foundDotenv {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(context.Background(), db); err != nil {
		logger.Sugar.Fatalf("Could not prepare database: %v", err)
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Sugar.Fatalf("Could not register metrics: %v", err)
	}

	// The feed hub fans image uploads out to /ws/feed subscribers.
	hub := socket.NewHub()
	go hub.Run()

	handler := router.Setup(db, hub, cfg, m, prometheus.DefaultGatherer)

	logger.Sugar.Infof("Guidebook API listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
