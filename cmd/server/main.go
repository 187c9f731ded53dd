package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/application"
	"github.com/fitgrid/messaging-service/internal/cache"
	"github.com/fitgrid/messaging-service/internal/config"
	"github.com/fitgrid/messaging-service/internal/observability"
	"github.com/fitgrid/messaging-service/internal/repository/postgres"
	"github.com/fitgrid/messaging-service/internal/transport/httpapi"
	"github.com/fitgrid/messaging-service/internal/ws"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	store, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	unread, err := cache.Connect(ctx, cfg.RedisAddr, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	registry := ws.NewRegistry(log)
	notifier := ws.NewBroadcaster(registry)
	svc := application.New(store, store, notifier, unread, log)

	wsHandler := ws.NewHandler(registry, svc, log)
	apiHandler := httpapi.NewHandler(svc, log)
	apiRouter := httpapi.NewRouter(apiHandler, wsHandler, cfg.JWTSecret, cfg.ServiceName, cfg.MetricsEnabled)

	obsSrv := initObservabilityServer(cfg, store, unread)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apiRouter}

	startServers(cfg, obsSrv, apiSrv, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, apiSrv, registry, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initObservabilityServer(cfg *config.Config, store *postgres.Store, unread *cache.Unread) *http.Server {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(store.Ping, unread.Ping))
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func startServers(cfg *config.Config, obsSrv, apiSrv *http.Server, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting main server", zap.String("addr", cfg.HTTPAddr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(obsSrv, apiSrv *http.Server, registry *ws.Registry, log *zap.Logger) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiSrv.Shutdown(ctx); err != nil {
		log.Error("error during main server shutdown", zap.Error(err))
	}
	if err := obsSrv.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	registry.CloseAll()
	log.Info("shutdown complete, exiting")
}
