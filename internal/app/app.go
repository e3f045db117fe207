package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/config"
	"github.com/kyochen/tablecart/internal/metrics"
	"github.com/kyochen/tablecart/internal/postgres"
	redisx "github.com/kyochen/tablecart/internal/redis"
	postgresrepo "github.com/kyochen/tablecart/internal/repository/postgres"
	redisrepo "github.com/kyochen/tablecart/internal/repository/redis"
	"github.com/kyochen/tablecart/internal/room"
	"github.com/kyochen/tablecart/internal/service"
	"github.com/kyochen/tablecart/internal/service/cart"
	httpgin "github.com/kyochen/tablecart/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	hub        *room.Hub
	pubsub     *redisx.CallPubSub
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(context.Background(), postgres.Config{
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Name:     cfg.Postgres.Name,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	clk, err := clock.New(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize clock: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	cache := redisrepo.New(rdb)
	pubsub := redisx.NewCallPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, redisx.PrefixRateLimit("session_new"), 30, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// In-memory presence and lock state, fanned out through the hub
	registry := room.NewRegistry(cfg.App.LockTTL)
	hub := room.NewHub()
	m := metrics.NewRegistry()

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, idempotencyStore, registry, hub, clk, m, service.Config{
		Cart: cart.Config{SessionTTL: cfg.App.SessionTTL},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, hub, m, logger, httpgin.RouterConfig{
		AdminPIN:       cfg.App.AdminPIN,
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		pubsub: pubsub,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Fan call announcements out to every connected stream. Announcements
	// travel through redis so multiple instances stay in sync.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, code string, updatedAt int64) {
			a.hub.Broadcast(room.Event{
				Name: "call_update",
				Data: map[string]any{"ok": true, "code": code, "updatedAt": updatedAt},
			})
		})
		if err != nil && gCtx.Err() == nil {
			a.logger.Error("call subscription stopped", "error", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
