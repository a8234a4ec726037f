package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/auth"
	"github.com/sagarc03/photoshelf/config"
	shelfhttp "github.com/sagarc03/photoshelf/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the photoshelf HTTP API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 5708, env: PHOTOSHELF_SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errNoJWTSecret
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := openBackend(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer b.Close()

	tokens, err := auth.NewTokenManager(
		[]byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Auth.TokenTTL)*time.Second,
		cfg.Auth.Issuer,
	)
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	handler := shelfhttp.NewHandler(&shelfhttp.HandlerConfig{
		Tokens:            tokens,
		Blobs:             b.server,
		CORS:              cfg.CORS,
		MaxUploadSize:     cfg.Server.MaxUploadSize,
		MaxFilesPerUpload: cfg.Server.MaxFilesPerUpload,
		SecureCookies:     cfg.Server.SecureCookies,
	}, b.service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Backend, "database", cfg.Database.Type)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
