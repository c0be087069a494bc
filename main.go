package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wschat/chat"
	"wschat/config"
	"wschat/gateway"
	"wschat/logger"
	mongostore "wschat/storage/mongo"
	redisstore "wschat/storage/redis"

	"go.uber.org/zap"
)

func main() {
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := mongostore.Connect(connectCtx, mongostore.Config{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
		MaxRetry:   cfg.MongoMaxRetry,
		OpTimeout:  cfg.MongoOpTimeout,
	})
	cancel()
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = store.Close(shutCtx)
	}()
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Warn("history index bootstrap failed", zap.Error(err))
	}

	var presence chat.PresenceMirror
	if cfg.RedisAddr != "" {
		p, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.GatewayID, cfg.PresenceTTL)
		if err != nil {
			logger.Error("redis connect failed", zap.Error(err))
			os.Exit(1)
		}
		defer func() { _ = p.Close() }()
		presence = p
	} else {
		logger.Info("presence mirror disabled, REDIS_ADDR not set")
	}

	mgr := chat.NewManager(chat.NewRegistry(), store, presence, logger.Named("chat"))
	srv := gateway.NewServer(mgr, gateway.Options{
		GatewayID:     cfg.GatewayID,
		NodeID:        cfg.NodeID,
		HistoryLimit:  cfg.HistoryLimit,
		SendQueueSize: cfg.SendQueueSize,
	}, logger.Named("gateway"))

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}
	go func() {
		logger.Info("gateway listening",
			zap.String("addr", cfg.ListenAddr), zap.String("gateway", cfg.GatewayID))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
	defer c()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}
