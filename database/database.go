package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/postgres"
	"github.com/sagarc03/photoshelf/database/sqlite"
)

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() photoshelf.MetadataRepo
	Close() error
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Tables holds the table names; empty names fall back to the defaults
	Tables photoshelf.Tables `mapstructure:"tables"`
	// AutoMigrate creates missing tables when the server starts
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Connect opens the configured backend. It does not migrate; call Migrate
// and Validate, or use Open.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	tables := cfg.Tables.WithDefaults()
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	var (
		db  Database
		err error
	)
	switch cfg.Type {
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.DSN, tables)
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.DSN, tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects, optionally migrates, validates the schema and returns the
// repo with a cleanup function that closes the connection.
func Open(ctx context.Context, cfg Config, migrate bool) (photoshelf.MetadataRepo, func(), error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Type, err)
	}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate %s: %w", cfg.Type, err)
		}
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate %s schema: %w", cfg.Type, err)
	}

	return db.GetRepo(), func() { _ = db.Close() }, nil
}
