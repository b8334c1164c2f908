package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/account"
	"github.com/Tyrowin/relaychat/internal/history"
	"github.com/Tyrowin/relaychat/internal/logging"
	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/room"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	cfg := loadConfig(*configPath)
	server.SetConfig(cfg)

	log := logging.New(logging.Config{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting chat relay",
		zap.String("port", cfg.Port), zap.String("room", cfg.RoomName))

	redisClient := store.NewClient(store.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)

	backend := store.NewRedis(redisClient, store.RedisOptions{
		Room:    cfg.RoomName,
		Timeout: cfg.BackendTimeout,
	}, log)

	registry := presence.NewRegistry(backend, log)
	ring := history.NewRing(backend, cfg.HistoryLimit, log)
	accounts := account.NewRedisStore(redisClient, cfg.BackendTimeout, log)
	auth := account.NewRedisAuthenticator(redisClient, cfg.BackendTimeout, log)

	hub := server.NewHub(log)
	go hub.Run()

	chatRoom := room.New(cfg.RoomName, registry, ring, accounts, backend, hub, log)

	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	bridge := room.NewBridge(backend, hub, log)
	go bridge.Run(bridgeCtx)

	chatHandler := server.NewChatHandler(hub, chatRoom, auth, log)
	mux := server.SetupRoutes(chatHandler)
	httpServer := server.CreateServer(cfg.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer, log)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout, log); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	stopBridge()
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Warn("hub shutdown incomplete", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Warn("redis close error", zap.Error(err))
	}
	log.Info("chat relay stopped")
}

func loadConfig(path string) *server.Config {
	if path == "" {
		return server.NewConfigFromEnv()
	}
	cfg, err := server.NewConfigFromFile(path)
	if err != nil {
		// Configuration problems should be visible before the logger exists.
		panic(err)
	}
	return cfg
}
