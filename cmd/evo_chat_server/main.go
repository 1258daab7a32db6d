package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evo_chat_server/internal/config"
	"evo_chat_server/internal/dao/db"
	myredis "evo_chat_server/internal/dao/redis"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/handler"
	"evo_chat_server/internal/https_server"
	"evo_chat_server/internal/infrastructure/logger"
	"evo_chat_server/internal/infrastructure/mq"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/service"
	"evo_chat_server/pkg/util/jwt"
	"evo_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	// 1. config
	conf := config.GetConfig()

	// 2. logger
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zap.L().Sync()
	zap.L().Info("logger ready", zap.String("node", conf.MainConfig.NodeID))

	// 3. ids and tokens
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)

	// 4. validator messages
	if err := handler.InitTrans("en"); err != nil {
		zap.L().Fatal("init validator translations failed", zap.Error(err))
	}

	// 5. relational store
	repos, err := db.Init(conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("init database failed", zap.Error(err))
	}

	// 6. redis, optional
	var cache *myredis.RedisCache
	if conf.RedisConfig.Enabled {
		if cache, err = myredis.Init(conf.RedisConfig); err != nil {
			zap.L().Fatal("init redis failed", zap.Error(err))
		}
		zap.L().Info("redis ready")
	}

	// 7. fanout bus and session gateway
	bus, err := mq.New(conf.BusConfig, conf.MainConfig.NodeID)
	if err != nil {
		zap.L().Fatal("init bus failed", zap.Error(err))
	}
	opts := ws.Options{
		NodeID: conf.MainConfig.NodeID,
		Bus:    bus,
		Conf:   conf.GatewayConfig,
	}
	if cache != nil {
		// presence edges span every node sharing this redis
		opts.Ledger = myredis.NewPresenceLedger(cache)
	}
	gateway := ws.NewGateway(opts)

	// 8. blob store
	blobs, err := storage.NewLocalStore(conf.StaticSrcConfig)
	if err != nil {
		zap.L().Fatal("init blob store failed", zap.Error(err))
	}

	// 9. services; the gateway reports presence to them and asks them before room joins
	deps := service.Deps{
		Repos:   repos,
		Emitter: gateway,
		Blobs:   blobs,
		Online:  gateway.Tracker(),
	}
	if cache != nil {
		deps.Cache = cache
	}
	service.InitServices(deps)
	gateway.SetPresenceSink(service.Svc.Presence)
	gateway.SetJoinGuard(service.Svc.Conversation)

	if err := gateway.Start(); err != nil {
		zap.L().Fatal("start gateway failed", zap.Error(err))
	}
	zap.L().Info("gateway ready", zap.String("bus", conf.BusConfig.MessageMode))

	// 10. http server
	engine := https_server.Init(conf, handler.NewHandlers(service.Svc, blobs, gateway))
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 11. graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
	// hijacked websocket connections survive Shutdown; their offline edges go out before the bus closes
	gateway.Close()
	if err := bus.Close(); err != nil {
		zap.L().Error("close bus", zap.Error(err))
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			zap.L().Error("close redis", zap.Error(err))
		}
	}
	zap.L().Info("server exited")
}
