package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/migrations"
)

// NewConnectSQLite opens the client's durable mutation queue database,
// runs the embedded migrations and demotes any mutations left in_flight
// by a previous process crash back to pending.
func NewConnectSQLite(ctx context.Context, cfg config.ClientQueue, log *logger.Logger) (*DB, error) {
	// queue must survive restarts, so the db lives in a file
	if err := createLocalDBFileIfNotExists(cfg.Path); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file")
	}

	conn, err := sql.Open("sqlite3", sqliteDSN(cfg.Path))
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB")
	}

	// the sqlite driver is not safe for concurrent writes over multiple conns
	conn.SetMaxOpenConns(1)

	// ping database
	err = conn.PingContext(ctx)
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database (ping)")
		return nil, err
	}
	log.Debug().Str("func", "NewConnectSQLite").Msg("connected to database successfully")

	if err = migrations.MigrateClient(conn); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error running migrations")
		return nil, err
	}

	// a crash mid-sync leaves rows stuck in_flight; nothing is draining
	// them at startup, so put them back in line
	if _, err = conn.ExecContext(ctx, resetInFlightMutationsQuery); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error resetting in_flight mutations")
		return nil, err
	}

	// construct a DB struct
	db := &DB{
		DB:     conn,
		logger: log,
	}

	return db, nil
}

// sqliteDSN decorates the queue file path with the connection pragmas the
// queue relies on: WAL journaling so a reader snapshot never blocks an
// enqueue, NORMAL sync as a sane durability/latency trade for WAL, and a
// busy timeout so concurrent statements wait instead of failing.
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		// if not found - create
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}
