// Package main our entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johndosdos/anonbox/internal"
	"github.com/johndosdos/anonbox/internal/config"
	"github.com/johndosdos/anonbox/internal/inbox"
	ratelimiter "github.com/johndosdos/anonbox/internal/rate_limiter"
	"github.com/johndosdos/anonbox/internal/store/memory"
	"github.com/johndosdos/anonbox/internal/store/mongo"
	"github.com/johndosdos/anonbox/internal/store/postgres"
)

type store interface {
	inbox.Store
	Close(ctx context.Context) error
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting application...")
	log.Printf("Initializing %s store...", cfg.StoreDriver)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	svc := inbox.NewService(st, inbox.NewSchemaValidator(cfg.MessageMaxLength))

	limiter := ratelimiter.NewIPRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitWindow,
		ratelimiter.CleanupOpts{TTL: 10 * time.Minute, Interval: time.Minute})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler: internal.NewRouter(internal.RouterOpts{
			Inbox:       svc,
			JWTSecret:   cfg.JWTSecret,
			SendLimiter: limiter.Middleware,
		}),
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	if err := st.Close(shutdownCtx); err != nil {
		log.Printf("couldn't close store: %+v", err)
	}

	log.Println("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.Open(connectCtx, cfg.DBURL)
	case config.DriverMongo:
		return mongo.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
