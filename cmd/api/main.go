package main

import (
	"context"
	"log"

	"convolab/config"
	"convolab/internal/handler"
	"convolab/internal/llm"
	"convolab/internal/middleware"
	"convolab/internal/redis"
	"convolab/internal/repository"
	"convolab/internal/server"
	"convolab/internal/services"
	"convolab/pkg/database"
	"convolab/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.AppEnv)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Logger.Fatal("Failed to connect to database: " + err.Error())
	}
	defer db.Close()
	l.Infof("Database connection established")

	if err := database.Migrate(ctx, db); err != nil {
		l.Logger.Fatal("Failed to apply migrations: " + err.Error())
	}

	var limiter middleware.Limiter
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			l.Logger.Fatal("Failed to connect to redis: " + err.Error())
		}
		defer rdb.Close()
		limiter = redis.NewRateLimiter(rdb, cfg.RateLimit)
	} else {
		l.Warnf("REDIS_ADDR not set, rate limiting disabled")
	}

	completion, err := llm.NewClient(cfg.LLM)
	if err != nil {
		l.Logger.Fatal("Failed to create completion client: " + err.Error())
	}

	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, cfg)
	chatService := services.NewChatService(completion, l)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Root: handler.NewRootHandler(db),
		Auth: handler.NewAuthHandler(authService),
		Chat: handler.NewChatHandler(chatService),
	}, authService, limiter)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
