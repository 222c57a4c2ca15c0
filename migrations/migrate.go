// Package migrations embeds and applies the goose schema migrations for both
// sides of the sync pair: the server's PostgreSQL record store and the
// client's SQLite mutation queue.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed server/*.sql client/*.sql
var embedMigrations embed.FS

// MigrateServer applies the PostgreSQL migrations for the record store.
func MigrateServer(db *sql.DB) error {
	return migrate(db, "pgx", "server")
}

// MigrateClient applies the SQLite migrations for the mutation queue.
func MigrateClient(db *sql.DB) error {
	return migrate(db, "sqlite3", "client")
}

func migrate(db *sql.DB, dialect, dir string) error {
	sub, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return fmt.Errorf("migration error reading embedded dir %s: %w", dir, err)
	}
	goose.SetBaseFS(sub)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
