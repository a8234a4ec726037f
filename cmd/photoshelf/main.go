package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "photoshelf",
	Short:   "Photo storage server with per-account ownership",
	Long: `Photoshelf stores photos in projects owned by accounts. Metadata lives
in SQLite or PostgreSQL, photo content in S3, MinIO or a local directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: PHOTOSHELF_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: PHOTOSHELF_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-backend", "", "blob backend: s3, minio, filesystem, memory (env: PHOTOSHELF_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem backend directory (env: PHOTOSHELF_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: PHOTOSHELF_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: auto, text, json (env: PHOTOSHELF_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
