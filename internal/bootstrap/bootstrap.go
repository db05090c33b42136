// Package bootstrap assembles the fantasy game from a Config: store,
// valuation, ledger, notifications, service and HTTP handler.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fantasycricket/internal/adapters/http/api"
	"github.com/okian/fantasycricket/internal/adapters/notify"
	"github.com/okian/fantasycricket/internal/adapters/repository"
	service "github.com/okian/fantasycricket/internal/app"
	"github.com/okian/fantasycricket/internal/config"
	"github.com/okian/fantasycricket/internal/domain/ledger"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	"github.com/okian/fantasycricket/pkg/logger"
)

// App is a fully wired game. Close releases everything Open acquired.
type App struct {
	Service *service.Service
	Hub     *notify.Hub

	handler http.Handler
	redis   *redis.Client
	cancel  context.CancelFunc
	done    chan struct{}
	log     logger.Logger
}

// Open builds the store named by cfg (Postgres when DatabaseURL is set,
// memory otherwise) and everything on top of it. With RedisURL set, team
// updates go through Redis so every replica's websocket clients see them.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	valuer := valuation.New(
		valuation.WithFloor(cfg.ValueFloor),
		valuation.WithStep(cfg.ValueStep),
		valuation.WithLocking(cfg.LockValues),
		valuation.WithOverrides(cfg.ValueOverrides),
	)

	a := &App{
		Hub: notify.NewHub(notify.WithLogger(log.Named("hub"))),
		log: log,
	}

	var notifier ledger.Notifier = a.Hub
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.redis = client
		notifier = notify.NewRedisPublisher(client, notify.WithLogger(log.Named("redis")))

		bridgeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.cancel = cancel
		a.done = make(chan struct{})
		bridge := notify.NewBridge(client, a.Hub, notify.WithLogger(log.Named("bridge")))
		go func() {
			defer close(a.done)
			if err := bridge.Run(bridgeCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(bridgeCtx, "redis bridge stopped", logger.Error(err))
			}
		}()
	}

	l := ledger.New(store, valuer,
		ledger.WithRosterSize(cfg.RosterSize),
		ledger.WithStartingBudget(cfg.StartingBudget),
		ledger.WithNotifier(notifier),
		ledger.WithMaxAttempts(cfg.LedgerMaxAttempts),
		ledger.WithLogger(log.Named("ledger")),
	)

	a.Service = service.New(store, valuer, l,
		service.WithLogger(log.Named("service")),
		service.WithDedupeSize(cfg.IdempotencyCacheSize),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		service.WithImportWorkers(cfg.ImportWorkers),
		service.WithImportQueueSize(cfg.ImportQueueSize),
	)

	a.handler = api.NewServer(a.Service,
		api.WithLogger(log.Named("api")),
		api.WithAdminToken(cfg.AdminToken),
		api.WithSubscriber(a.Hub),
	).Handler()

	if cfg.ImportFile != "" {
		report, err := a.Service.ImportFile(ctx, cfg.ImportFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("startup import: %w", err)
		}
		log.Info(ctx, "seed players imported",
			logger.String("file", cfg.ImportFile),
			logger.Int("imported", report.Imported),
			logger.Int("skipped", report.Skipped),
			logger.Int("failed", len(report.Failed)),
		)
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info(ctx, "using in-memory store")
		return repository.NewMemoryStore(), nil
	}
	pool, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := repository.NewPostgresStore(pool, repository.WithLogger(log.Named("postgres")))
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	log.Info(ctx, "using postgres store")
	return store, nil
}

// Handler is the HTTP surface of the game.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close stops the Redis bridge, disconnects websocket clients and releases
// the store.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn(context.Background(), "redis close failed", logger.Error(err))
		}
	}
	a.Hub.Close()
	a.Service.Close()
}
