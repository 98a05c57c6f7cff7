package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kinsluv/api"
	"kinsluv/auth"
	"kinsluv/config"
	"kinsluv/database"
	"kinsluv/events"
	"kinsluv/realtime"
	"kinsluv/repository"
	"kinsluv/service"

	log "github.com/sirupsen/logrus"
)

// Run wires the application together and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg := config.Get()

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.WithField("environment", cfg.Environment).Info("Starting kinsluv")

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	tokens := auth.NewTokens(cfg.JWTSecret, time.Now)

	userService := service.NewUserService(uowFactory, tokens, auth.Hasher{})
	messageService := service.NewMessageService(uowFactory)
	giftService := service.NewGiftService(uowFactory)
	statsService := service.NewStatsService(uowFactory)

	hub := realtime.NewHub()
	wsHandler := realtime.NewHandler(hub, userService, messageService, giftService, tokens, cfg.HistoryLimit)
	wsHandler.SubscribeBusEvents(eventBus)

	handlers := api.NewHandlers(userService, messageService, giftService, statsService, tokens, cfg.AdminPassword, cfg.HistoryLimit, cfg.TopUpDefault)
	server := api.NewServer(cfg.Port, handlers, wsHandler)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	if err := server.Shutdown(10 * time.Second); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}
