package store

import "github.com/Presidentty1/nestling-care-log-sub003/internal/logger"

// ClientStorages bundles the client-side repositories.
type ClientStorages struct {
	QueueRepository
}

// NewClientStorages wires the client repositories to the local queue
// database.
func NewClientStorages(db *DB, logger *logger.Logger) *ClientStorages {
	logger.Debug().Msg("creating client storages")
	return &ClientStorages{
		QueueRepository: NewQueueRepository(db, logger),
	}
}
