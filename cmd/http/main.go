package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/gatherly/gatherly/internal/infrastructure/auth"
	"github.com/gatherly/gatherly/internal/infrastructure/configs"
	"github.com/gatherly/gatherly/internal/infrastructure/ratelimiter"
	"github.com/gatherly/gatherly/internal/infrastructure/repository"
	"github.com/gatherly/gatherly/internal/infrastructure/tracing"
	"github.com/gatherly/gatherly/internal/infrastructure/ws"
	"github.com/gatherly/gatherly/internal/presentation/api"
	"github.com/gatherly/gatherly/internal/presentation/handler/chat"
	"github.com/gatherly/gatherly/internal/presentation/handler/health"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "gatherly-chat"

func main() {
	_ = godotenv.Load()

	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var messageStore domain.MessageStore
	if cfg.Database.DSN != "" {
		db, err := repository.OpenPostgres(cfg.Database.DSN)
		if err != nil {
			log.Fatal(err)
		}
		messageStore = repository.NewPostgresMessageStore(db)
		logger.Infow("using postgres message store")
	} else {
		messageStore = repository.NewMemoryMessageStore(cfg.Database.Capacity)
		logger.Warnw("DATABASE_URL not set, using in-memory message store")
	}

	registry := ws.NewRegistry(tokenService, cfg.Chat.StaleTimeout, logger)
	registry.StartSweeper(cfg.Chat.PingInterval)
	defer registry.Stop()

	core := ws.NewCore(registry, messageStore, logger, ws.Options{
		PingInterval:     cfg.Chat.PingInterval,
		MaxContentLength: cfg.Chat.MaxContentLength,
		SendBuffer:       cfg.Chat.SendBuffer,
	})

	chatHandler := chat.NewHandler(messageStore, tokenService, core, cfg.HTTP.FrontendOrigin, logger)
	healthHandler := health.NewHandler()

	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
	defer rateLimiter.Close()

	app := api.NewApplication(*cfg, *chatHandler, *healthHandler, logger, rateLimiter)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("ws_connections", expvar.Func(func() any {
		return registry.ConnectionCount()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
