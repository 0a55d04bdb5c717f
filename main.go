package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wfunc/typerace/broadcast"
	"github.com/wfunc/typerace/cache"
	"github.com/wfunc/typerace/config"
	"github.com/wfunc/typerace/events"
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/monitor"
	"github.com/wfunc/typerace/persistence"
	"github.com/wfunc/typerace/room"
	"github.com/wfunc/typerace/rpc"
	"github.com/wfunc/typerace/server"
	"github.com/wfunc/typerace/services"
	"github.com/wfunc/typerace/session"
	"github.com/wfunc/typerace/state"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database %q ready.", cfg.Database.Driver)

	// Room records
	var store cache.RoomCache
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		store = cache.NewRedisRoomCache(client)
		logger.Log.Infof("Room records in redis at %s", cfg.Redis.Addr)
	} else {
		store = cache.NewMemoryRoomCache(nil)
		logger.Log.Info("Room records in memory.")
	}

	// Finished-game events
	var publisher services.EventPublisher
	if cfg.NATS.URL != "" {
		jsCfg := events.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.StreamName
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		js, err := events.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer js.Close()
		publisher = js
	}

	metrics := monitor.NewMonitor("typerace")
	metrics.StartServer(cfg.Server.MetricsAddress)
	defer metrics.Close()

	results := services.NewResultService(db, publisher, metrics)
	stats := services.NewStatsService(db)

	rooms := room.NewRoomManager(store, room.ManagerConfig{
		RoomTTL:      cfg.Game.RoomTTL,
		CodeAttempts: cfg.Game.CodeAttempts,
		Monitor:      metrics,
		Room: room.Options{
			Settings: state.Settings{
				CountdownFrom:     cfg.Game.CountdownFrom,
				CountdownInterval: cfg.Game.CountdownInterval,
				ResetDelay:        cfg.Game.ResetDelay,
			},
			Broadcaster: broadcast.NewRoomBroadcaster(metrics),
			Sink:        results,
		},
	})
	go rooms.Run(ctx, cfg.Game.SweepInterval)

	// RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewRaceService(rooms, stats))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		HTTPAddress:    cfg.Server.HTTPAddress,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, rooms, session.NewManager(), metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down.")
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Game server shutdown: %v", err)
	}
	rpcServer.Stop()
	rooms.CloseAll()
}
