package client

import (
	"context"
	"fmt"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/adapter"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/netmon"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/service"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/workers"
)

// App is the sync agent: it owns the durable mutation queue, the sync
// engine, and the background workers that keep local changes flowing to the
// server whenever connectivity allows.
type App struct {
	cfg      *config.ClientConfig
	services *service.ClientServices
	monitor  *netmon.Monitor
	prober   *workers.Prober
	db       *store.DB

	unsubscribe func()

	logger *logger.Logger
}

// NewApp wires the full client graph from configuration: queue storage,
// remote adapter, network monitor, services, and workers.
func NewApp(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (*App, error) {
	db, err := store.NewConnectSQLite(ctx, cfg.Storage.Queue, logger)
	if err != nil {
		return nil, fmt.Errorf("open queue storage: %w", err)
	}

	storages := store.NewClientStorages(db, logger)
	remote, err := adapter.NewHTTPRemoteStore(cfg.Adapter, logger)
	if err != nil {
		return nil, fmt.Errorf("create remote store: %w", err)
	}
	monitor := netmon.NewMonitor(cfg.Sync.OfflineDebounce, logger)
	services := service.NewClientServices(storages, remote, monitor, *cfg, logger)

	return &App{
		cfg:      cfg,
		services: services,
		monitor:  monitor,
		prober:   workers.NewProber(remote, monitor, cfg.Workers.ProbeInterval, logger),
		db:       db,
		logger:   logger,
	}, nil
}

// Services exposes the client service graph to the UI layer.
func (a *App) Services() *service.ClientServices {
	return a.services
}

// Monitor exposes the network monitor so the UI can show connectivity state.
func (a *App) Monitor() *netmon.Monitor {
	return a.monitor
}

// Run implements [Client]. It starts the connectivity prober and the
// periodic sync job, drains the queue as soon as connectivity is confirmed,
// and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	// a confirmed transition to online first restores any conflicts parked
	// before the last shutdown, then drains; the engine's own guards make
	// redundant triggers harmless
	a.unsubscribe = a.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := a.services.Resolver.Rebuild(ctx); err != nil {
				a.logger.Err(err).Str("func", "*App.Run").Msg("rebuilding conflict inbox failed")
			}
			if err := a.services.SyncEngine.Sync(ctx); err != nil {
				a.logger.Err(err).Str("func", "*App.Run").Msg("drain after reconnect failed")
			}
		}()
	})

	a.prober.Run()
	a.services.SyncJob.Start(ctx, a.cfg.Workers.SyncInterval)

	a.logger.Info().
		Str("device", a.cfg.App.Device).
		Str("server", a.cfg.Adapter.BaseURL).
		Msg("sync agent running")

	<-ctx.Done()
	a.Stop()

	return nil
}

// Stop halts the background workers and closes the queue storage. Safe to
// call more than once.
func (a *App) Stop() {
	a.services.SyncJob.Stop()
	a.prober.Stop()

	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Err(err).Msg("closing queue storage")
		}
		a.db = nil
	}

	a.logger.Info().Msg("sync agent stopped")
}
