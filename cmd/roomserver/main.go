package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hapdev05/Room-server/config"
	"github.com/hapdev05/Room-server/internal/postgres"
	"github.com/hapdev05/Room-server/internal/security"
	"github.com/hapdev05/Room-server/internal/service"
	httpx "github.com/hapdev05/Room-server/internal/transport/http"
	"github.com/hapdev05/Room-server/internal/transport/ws"
	"github.com/hapdev05/Room-server/pkg/logger"

	"github.com/joho/godotenv"
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
	slog.Info("starting room-server",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	memberRepo := postgres.NewMemberRepository(db.Pool)
	shareRepo := postgres.NewShareRepository(db.Pool)

	// --- services ---
	roomSvc := service.NewRoomService(roomRepo, memberRepo)
	memberSvc := service.NewMemberService(roomRepo, memberRepo)
	shareSvc := service.NewShareService(shareRepo, roomSvc, memberSvc)

	// --- WS hub, reconciler ---
	hub := ws.NewHub()
	syncSvc := service.NewSyncService(roomSvc, hub, hub, service.SyncConfig{
		CoalesceWindow:   cfg.Sync.CoalesceWindowOr(2 * time.Second),
		JoinSyncDelay:    cfg.Sync.JoinSyncDelayOr(time.Second),
		JoinRefreshDelay: cfg.Sync.JoinRefreshDelayOr(3 * time.Second),
	})
	defer syncSvc.Close()

	verifier := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	wsServer := ws.NewServer(hub, syncSvc, verifier)

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc, memberSvc, shareSvc, syncSvc)
	router := httpx.NewRouter(handler, wsServer, verifier, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- background consistency loop ---
	loopCtx, loopCancel := context.WithCancel(ctx)
	defer loopCancel()
	go syncSvc.RunConsistencyLoop(loopCtx, cfg.Sync.CheckIntervalOr(30*time.Second))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	loopCancel()
	syncSvc.Close()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
