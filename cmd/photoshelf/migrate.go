package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/config"
	"github.com/sagarc03/photoshelf/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or verify the metadata tables",
	Long: `Create the accounts, projects and photos tables if they do not exist,
then check that the live schema matches what photoshelf expects.

Use --check to only validate an existing schema.`,
	RunE: runMigrate,
}

var migrateCheckOnly bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateCheckOnly, "check", false, "validate the schema without creating tables")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err = db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if !migrateCheckOnly {
		if err = db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete", "type", cfg.Database.Type)
	}

	if err = db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("database schema is valid", "tables", cfg.Database.Tables.WithDefaults())
	return nil
}
