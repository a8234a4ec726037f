package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/photoshelf"
)

type database struct {
	pool   *pgxpool.Pool
	tables photoshelf.Tables
}

// Connect establishes a connection pool to PostgreSQL.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables photoshelf.Tables) (*database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &database{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the accounts, projects and photos tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() photoshelf.MetadataRepo {
	return &Repo{pool: d.pool, tables: d.tables}
}

// Close closes the database connection pool.
func (d *database) Close() error {
	d.pool.Close()
	return nil
}
