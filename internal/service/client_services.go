package service

import (
	"github.com/Presidentty1/nestling-care-log-sub003/internal/adapter"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
)

// ClientServices bundles everything the client application works with.
type ClientServices struct {
	AuthService ClientAuthService
	Queue       MutationQueue
	Resolver    ConflictResolver
	SyncEngine  SyncEngine
	SyncJob     SyncJob
}

// NewClientServices wires the client service graph: queue on the local
// store, resolver on the queue, engine on all three plus the connectivity
// source.
func NewClientServices(
	storages *store.ClientStorages,
	remote adapter.RemoteStore,
	connectivity ConnectivitySource,
	cfg config.ClientConfig,
	logger *logger.Logger,
) *ClientServices {
	queue := NewMutationQueue(storages.QueueRepository, cfg.Sync.BatchSize, logger)
	resolver := NewConflictResolver(queue, remote, logger)
	engine := NewSyncEngine(queue, remote, resolver, connectivity, cfg.Sync, logger)

	return &ClientServices{
		AuthService: NewClientAuthService(remote, cfg.App.Device, logger),
		Queue:       queue,
		Resolver:    resolver,
		SyncEngine:  engine,
		SyncJob:     NewSyncJob(engine),
	}
}
