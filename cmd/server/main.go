package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/broker"
	"chatboard/pkg/cache"
	"chatboard/pkg/config"
	"chatboard/pkg/database"
	"chatboard/pkg/handlers"
	"chatboard/pkg/hub"
	"chatboard/pkg/logger"
	"chatboard/pkg/server"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := hub.New(log)
	feed := board.NewFeed(cfg.Feed.Limit)

	var (
		opts []handlers.Option
		b    *broker.Broker
	)
	if cfg.Redis.URL != "" {
		rdb, err := database.Connect(ctx, cfg.Redis.URL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		b = broker.New(rdb, log)
		defer b.Close()
		opts = append(opts, handlers.WithBroker(b), handlers.WithCache(cache.New(rdb, log)))
	} else {
		log.Info("redis not configured, running standalone")
	}

	boardHandler := handlers.NewBoard(wsHub, feed, log, opts...)
	boardHandler.RegisterActions()
	if b != nil {
		if err := b.Subscribe(); err != nil {
			log.Fatal("failed to subscribe to broker", zap.Error(err))
		}
	}

	app := server.NewApp(cfg.Server.Name, cfg.CORS.Origins, log)
	server.Register(app, wsHub, boardHandler, cfg.Limiter.Max, cfg.Limiter.Expiration)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("ws", "/ws"))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
}
