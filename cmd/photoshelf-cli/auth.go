package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/client"
)

// passwordEnv lets scripts supply a password without a prompt.
const passwordEnv = "PHOTOSHELF_PASSWORD"

const defaultProfileName = "default"

var (
	authName  string
	authEmail string
	authYes   bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account on the server. The password is prompted for, or read
from PHOTOSHELF_PASSWORD.

Examples:
  photoshelf-cli register --name Ada --email ada@example.com`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the token in the selected profile",
	Long: `Log in with email and password. The token is saved in the selected profile
(or the default one), which is created when it does not exist yet.

Examples:
  photoshelf-cli login --email ada@example.com
  photoshelf-cli login --profile work --endpoint https://photos.example.com`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved token from the selected profile",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var deleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Delete your account with all of its projects and photos",
	Args:  cobra.NoArgs,
	RunE:  runDeleteAccount,
}

func init() {
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "display name")
	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "email address")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringVarP(&authEmail, "email", "e", "", "email address (prompted if empty)")

	deleteAccountCmd.Flags().BoolVarP(&authYes, "yes", "y", false, "skip the confirmation prompt")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	password, err := readPassword("Password")
	if err != nil {
		return err
	}

	account, err := c.Register(cmd.Context(), authName, authEmail, password)
	if err != nil {
		return err
	}

	return getFormatter().FormatAccount(os.Stdout, account)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	email := authEmail
	if email == "" {
		prompt := promptui.Prompt{Label: "Email"}
		if email, err = prompt.Run(); err != nil {
			return handlePromptError(err)
		}
	}

	password, err := readPassword("Password")
	if err != nil {
		return err
	}

	tok, err := c.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	name, err := saveLogin(c.Endpoint(), email, tok.AccessToken)
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Logged in as %s (profile '%s', token expires %s).\n",
			email, name, tok.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// saveLogin stores the token in the selected profile and returns its name.
func saveLogin(endpointURL, email, accessToken string) (string, error) {
	cf, err := loadConfigFile()
	if err != nil {
		return "", err
	}

	name := selectedProfile()
	if name == "" {
		name = cf.DefaultName()
	}
	if name == "" {
		name = defaultProfileName
	}

	makeDefault := len(cf.Profiles) == 0 || cf.DefaultName() == name
	cf.UpsertProfile(client.Profile{
		Name:     name,
		Endpoint: endpointURL,
		Email:    email,
		Token:    accessToken,
	})
	if makeDefault {
		if err := cf.SetDefault(name); err != nil {
			return "", err
		}
	}

	if err := cf.Save(getConfigPath()); err != nil {
		return "", fmt.Errorf("save config: %w", err)
	}
	return name, nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	if err := clearToken(); err != nil {
		return err
	}
	if !quiet {
		fmt.Println("Logged out.")
	}
	return nil
}

// clearToken drops the token from the selected profile. Missing config is fine.
func clearToken() error {
	cf, err := loadConfigFile()
	if err != nil {
		return err
	}

	p, err := cf.GetProfile(selectedProfile())
	if errors.Is(err, client.ErrNoProfiles) {
		return nil
	}
	if err != nil {
		return err
	}

	p.Token = ""
	if err := cf.Save(getConfigPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	account, err := c.Me(cmd.Context())
	if err != nil {
		return err
	}

	return getFormatter().FormatAccount(os.Stdout, account)
}

func runDeleteAccount(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	account, err := c.Me(cmd.Context())
	if err != nil {
		return err
	}

	if !authYes {
		ok, err := confirm(fmt.Sprintf("Delete %s and all of its projects and photos", account.Email))
		if err != nil || !ok {
			fmt.Println("Cancelled.")
			return err
		}
	}

	report, err := c.DeleteAccount(cmd.Context())
	if err != nil {
		return err
	}

	if err := clearToken(); err != nil {
		return err
	}

	return getFormatter().FormatCleanup(os.Stdout, "account "+account.Email, report)
}

func readPassword(label string) (string, error) {
	if password := os.Getenv(passwordEnv); password != "" {
		return password, nil
	}

	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	password, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return "", errors.New("cancelled")
		}
		return "", err
	}
	return password, nil
}
