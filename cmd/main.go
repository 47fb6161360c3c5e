package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/repository/postgres"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/rest"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/scheduler"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/settlement"
	auctionws "github.com/cristianortiz/proxybidEngine/internal/auction/infra/websocket"
	"github.com/cristianortiz/proxybidEngine/internal/shared/config"
	"github.com/cristianortiz/proxybidEngine/internal/shared/db"
	"github.com/cristianortiz/proxybidEngine/internal/shared/db/migrations"
	"github.com/cristianortiz/proxybidEngine/internal/shared/httpserver"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/cristianortiz/proxybidEngine/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger := logger.GetLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("Starting ProxyBid engine...",
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store domain.AuctionStore
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
	default:
		dsn := cfg.DB.DSN()
		logger.Info("Running database migrations...")
		if err := migrations.RunMigrations(dsn); err != nil {
			logger.Fatal("Database migration failed", zap.Error(err))
		}
		pool, err := db.GetPostgresDBPool(ctx, dsn)
		if err != nil {
			logger.Fatal("Database connection failed", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	var publisher domain.SettlementPublisher = settlement.LogPublisher{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis connection failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer client.Close()
		publisher = settlement.NewRedisPublisher(client, cfg.SettlementStream)
	}

	auctionService := application.NewAuctionService(store, publisher, application.Options{
		MaxConflictAttempts: cfg.ConflictMaxAttempts,
	})

	hub := websocket.NewHub()
	go hub.Run(ctx)

	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	go wsHandler.ListenForMessages(ctx)

	go scheduler.NewCloseSweeper(auctionService, wsHandler, cfg.CloseSweepInterval).Run(ctx)

	server := httpserver.NewServer("",
		rest.NewAuctionHandler(auctionService, wsHandler),
		httpserver.RegistrarFunc(func(router fiber.Router) {
			wsHandler.Register(ctx, router)
		}),
	)
	if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
	logger.Info("ProxyBid engine stopped")
}
