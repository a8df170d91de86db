package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/panaderia-demo/storefront/backend"
	"github.com/panaderia-demo/storefront/backend/static"
	"github.com/panaderia-demo/storefront/backend/store"
	"github.com/panaderia-demo/storefront/backend/ws"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := backend.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := static.NewServer(cfg.StaticRoot)
	if err != nil {
		log.Fatalf("static: %v", err)
	}

	pool, err := store.NewPool(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	// the liveness stub keeps answering while the database is down
	if err := store.Ping(ctx, pool); err != nil {
		log.Printf("db: %v", err)
	} else if err := store.Migrate(ctx, pool); err != nil {
		log.Printf("db: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}
	hub := ws.NewHub(rdb)
	defer hub.Close()

	repo := store.NewRepo(pool)
	api := backend.NewAPI(cfg, repo, repo, hub)

	servers := []*http.Server{
		{
			Addr:              ":" + cfg.StaticPort,
			Handler:           backend.LoggingMiddleware(files),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		{
			Addr:              ":" + cfg.APIPort,
			Handler:           api.Handler(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Printf("Server starting on http://localhost%s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutdown %s: %v", srv.Addr, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: %v", err)
		os.Exit(1)
	}
	log.Printf("servers stopped")
}
