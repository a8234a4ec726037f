// Package database connects photoshelf to its metadata backend.
//
// Two backends are supported:
//
//   - PostgreSQL through a pgx connection pool, for production
//   - SQLite through modernc.org/sqlite, for development and single-node deployments
//
// Both declare the ownership chain in the schema: projects reference accounts,
// photos reference the (project, account) pair, and every reference cascades
// on delete. Project and account deletion read the affected blob keys inside
// the same transaction that removes the rows.
//
// # Usage
//
//	repo, cleanup, err := database.Open(ctx, database.Config{
//	    Type: "sqlite",
//	    DSN:  "photoshelf.db",
//	}, true)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
package database
