package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Rajatg180/issueFlow-Project/internal/app"
	httpx "github.com/Rajatg180/issueFlow-Project/internal/http"
	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/internal/ws"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Fan-out wiring: one registry per process, a broadcaster over it, and
	// the bus subscriber feeding the broadcaster. Local clients hear this
	// instance's own writes through the bus like everyone else's.
	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(logger, registry)
	bus := ws.NewBus(ctx, cfg, logger)
	defer bus.Close()

	var subDone sync.WaitGroup
	subDone.Add(1)
	go func() {
		defer subDone.Done()
		bus.Subscribe(ctx, broadcaster)
	}()

	// Live-connection endpoint
	hub := ws.NewHub(logger, registry, auth.New(cfg.JWTSecret), pg)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, bus, pg)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown: stop accepting, then wait for the subscriber to unsubscribe
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	subDone.Wait()

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
