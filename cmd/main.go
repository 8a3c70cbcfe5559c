package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qacaursur-alt/Bugnation-sub001/config"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/postgres"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/service"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/session"
	httpx "github.com/qacaursur-alt/Bugnation-sub001/internal/transport/http"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/transport/ws"
	"github.com/qacaursur-alt/Bugnation-sub001/pkg/logger"
)

func main() {
	// --- config ---
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting live-class service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- chat archive (optional) ---
	var archive *service.ChatArchive
	var sink session.ChatSink
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		archive = service.NewChatArchive(postgres.NewChatRepository(pool), logger.L())
		sink = archive
		go archive.Run(ctx)
		slog.Info("chat archive enabled")
	}

	// --- session core ---
	mgr := session.NewManager(session.Limits{
		MaxRooms:          cfg.Session.MaxRooms,
		MaxParticipants:   cfg.Session.MaxParticipants,
		ReconnectGrace:    cfg.ReconnectGraceDuration(),
		EmptyRoomGrace:    cfg.EmptyRoomGraceDuration(),
		MaxChatMessageLen: cfg.Session.MaxChatMessageLen,
	}, logger.L(), sink)

	// --- transport ---
	wsServer := ws.NewServer(mgr)
	handler := httpx.NewHandler(mgr, archive)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket живёт дольше любого таймаута
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped", "rooms", mgr.Rooms())
}
