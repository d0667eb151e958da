package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/planner"
	"meal-planner/internal/store"
	"meal-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		logger.NewDevelopment().Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	ctx := context.Background()

	// 2. Open the store
	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer backend.Close(context.Background())

	// 3. Initialize Telegram Bot
	mealPlanner := planner.NewPlanner(backend.Recipes, backend.TDEEs)
	bot, err := telegram.NewBot(cfg, mealPlanner, backend.Metrics, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Infow("Telegram Bot Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	// Let accepted messages finish before the store closes.
	bot.Wait()

	log.Info("Server exiting")
}
