package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/photoshelf"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns the migrations in dependency order.
func getTableMigrations(tables photoshelf.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Accounts,
			Up:        createAccountsTable(tables),
			Down:      dropTable(tables.Accounts),
		},
		{
			TableName: tables.Projects,
			Up:        createProjectsTable(tables),
			Down:      dropTable(tables.Projects),
		},
		{
			TableName: tables.Photos,
			Up:        createPhotosTable(tables),
			Down:      dropTable(tables.Photos),
		},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables photoshelf.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables photoshelf.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func execAll(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createAccountsTable(tables photoshelf.Tables) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		err := execAll(ctx, db, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TEXT NOT NULL
			)
		`, quoteIdentifier(tables.Accounts)))
		if err != nil {
			return fmt.Errorf("create accounts table: %w", err)
		}
		return nil
	}
}

// createProjectsTable declares UNIQUE(id, account_id) so photos can reference
// the pair and inherit the project's owner.
func createProjectsTable(tables photoshelf.Tables) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quoted := quoteIdentifier(tables.Projects)
		err := execAll(ctx, db,
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT NOT NULL PRIMARY KEY,
					account_id TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					description TEXT,
					created_at TEXT NOT NULL,
					UNIQUE (id, account_id)
				)
			`, quoted, quoteIdentifier(tables.Accounts)),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (account_id, created_at)`,
				quoteIdentifier("idx_"+tables.Projects+"_account_created"), quoted),
		)
		if err != nil {
			return fmt.Errorf("create projects table: %w", err)
		}
		return nil
	}
}

func createPhotosTable(tables photoshelf.Tables) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quoted := quoteIdentifier(tables.Photos)
		err := execAll(ctx, db,
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT NOT NULL PRIMARY KEY,
					blob_key TEXT NOT NULL UNIQUE,
					original_name TEXT NOT NULL,
					mime_type TEXT NOT NULL,
					size_bytes INTEGER NOT NULL,
					account_id TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
					project_id TEXT NOT NULL,
					created_at TEXT NOT NULL,
					FOREIGN KEY (project_id, account_id) REFERENCES %s (id, account_id) ON DELETE CASCADE
				)
			`, quoted, quoteIdentifier(tables.Accounts), quoteIdentifier(tables.Projects)),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (project_id, account_id, created_at)`,
				quoteIdentifier("idx_"+tables.Photos+"_project_created"), quoted),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (account_id)`,
				quoteIdentifier("idx_"+tables.Photos+"_account"), quoted),
		)
		if err != nil {
			return fmt.Errorf("create photos table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}
