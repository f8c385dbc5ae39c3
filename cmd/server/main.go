package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/learnplay/internal/api"
	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/genai"
	"github.com/dom/learnplay/internal/logger"
	"github.com/dom/learnplay/internal/repository"
	"github.com/dom/learnplay/internal/repository/memory"
	"github.com/dom/learnplay/internal/repository/postgres"
	"github.com/dom/learnplay/internal/repository/redisstore"
	"github.com/dom/learnplay/internal/service"
	"github.com/dom/learnplay/internal/session"
	"github.com/dom/learnplay/internal/token"
	"github.com/dom/learnplay/internal/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	clock := clockwork.NewRealClock()

	// Initialize storage
	repos, closeStore, err := openRepositories(cfg, clock, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("store", cfg.SessionStore), zap.Error(err))
	}
	defer closeStore()

	tokens := token.NewService(cfg.JWTSecret, cfg.TokenTTL, clock)
	guard := session.NewGuard(tokens, repos.Session, clock, log)

	sweeper := session.NewSweeper(repos.Session, clock, cfg.SessionSweepInterval, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal("failed to start session sweeper", zap.Error(err))
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()

	generator := genai.NewGeminiClient(cfg.AIBaseURL, cfg.AIModel, cfg.AIAPIKey, nil, log)
	if cfg.AIAPIKey == "" {
		log.Warn("AI_API_KEY is not set, report and story generation will fail")
	}

	services := service.NewServices(repos, tokens, generator, cfg, clock, log)
	router := api.NewRouter(services, guard, hub, cfg, log)

	// Report generation can take up to AI_TIMEOUT, so writes get that plus headroom.
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.SessionStore),
			zap.Int("budgetMinutes", cfg.SessionBudgetMinutes))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()
	if err := sweeper.Stop(); err != nil {
		log.Warn("session sweeper did not stop cleanly", zap.Error(err))
	}

	log.Info("server stopped")
}

// openRepositories picks the session backend. Users and played games live in
// postgres unless everything runs in memory.
func openRepositories(cfg *config.Config, clock clockwork.Clock, log *zap.Logger) (*repository.Repositories, func(), error) {
	if cfg.SessionStore == config.SessionStoreMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewRepositories(clock), func() {}, nil
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	repos := postgres.NewRepositories(db, clock)
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if cfg.SessionStore != config.SessionStoreRedis {
		return repos, closeDB, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rdb, err := redisstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	repos.Session = redisstore.NewSessionStore(rdb, clock)

	return repos, func() {
		rdb.Close()
		closeDB()
	}, nil
}
