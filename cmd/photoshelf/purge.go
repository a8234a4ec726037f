package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/config"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-account",
	Short: "Delete an account with all of its projects and photos",
	Long: `Delete an account, every project and photo it owns, and the stored photo
content. Metadata is removed first; content that cannot be deleted is logged
and left behind as unreferenced blobs.

Examples:
  photoshelf purge-account --email ada@example.com
  photoshelf purge-account --email ada@example.com --yes`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

var (
	purgeEmail string
	purgeYes   bool
)

func init() {
	purgeCmd.Flags().StringVarP(&purgeEmail, "email", "e", "", "email of the account to delete")
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip the confirmation prompt")
	_ = purgeCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	account, err := b.repo.GetAccountByEmail(ctx, purgeEmail)
	if err != nil {
		return fmt.Errorf("find account %s: %w", purgeEmail, err)
	}

	if !purgeYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete %s (%s) and all of its photos", account.Email, account.ID),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
				slog.Info("purge aborted")
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
	}

	report, err := b.service.DeleteAccount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slog.Info("account purged",
		"account_id", account.ID, "keys", report.Keys, "deleted", report.Deleted, "failed", report.Failed)
	return nil
}
