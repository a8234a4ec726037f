package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/photoshelf"

	_ "modernc.org/sqlite" // SQLite driver
)

const foreignKeysPragma = "_pragma=foreign_keys(1)"

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables photoshelf.Tables
}

// Connect opens a SQLite database with foreign keys enforced. The pool is
// limited to a single connection: SQLite serializes writers anyway and an
// in-memory database exists per connection.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables photoshelf.Tables) (*database, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: enable foreign keys: %w", err)
	}

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + foreignKeysPragma
	}
	return dsn + "?" + foreignKeysPragma
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the accounts, projects and photos tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() photoshelf.MetadataRepo {
	return &repo{db: d.db, tables: d.tables}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
