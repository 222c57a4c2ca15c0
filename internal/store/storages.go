package store

import "github.com/Presidentty1/nestling-care-log-sub003/internal/logger"

// Storages bundles every server-side repository behind one constructor so
// the service layer receives a single dependency.
type Storages struct {
	UserRepository
	RecordRepository
}

// NewStorages wires all server repositories to the given database
// connection.
func NewStorages(db *DB, logger *logger.Logger) *Storages {
	logger.Debug().Msg("creating server storages")
	return &Storages{
		UserRepository:   NewUserRepository(db, logger),
		RecordRepository: NewRecordRepository(db, logger),
	}
}
