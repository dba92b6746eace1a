package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/expense-inbox/internal/api/handlers"
	"github.com/dvloznov/expense-inbox/internal/api/middleware"
	"github.com/dvloznov/expense-inbox/internal/app"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.NewFromConfig(cfg.Logger.Level, cfg.Logger.Format)

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize clients")
	}
	defer a.Close()

	// Fail fast on a misconfigured sheet rather than on the first email.
	validateCtx, cancelValidate := context.WithTimeout(ctx, 30*time.Second)
	header, err := a.Ledger.Validate(validateCtx)
	cancelValidate()
	if err != nil {
		log.Fatal().Err(err).Msg("Ledger sheet validation failed")
	}
	log.Info().
		Str("sheet", cfg.Sheet.Title).
		Str("header", header.String()).
		Msg("Ledger sheet validated")

	events := handlers.NewEventsHandler(a.Orchestrator)
	mux := handlers.Routes(events)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(mux),
		),
	)

	// Model and sheet calls dominate; keep the write timeout well above them.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting event receiver")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
