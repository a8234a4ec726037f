package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/client"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage server profiles",
	Long: `Manage server profiles in the configuration file.

Profiles save the endpoint and login token for each photoshelf server you use.
Switch between them with --profile or PHOTOSHELF_PROFILE.

Configuration is stored in ~/.photoshelf/config.yaml`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the config file.

The default profile is marked with an asterisk (*).`,
	Args: cobra.NoArgs,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Long: `Add a new profile interactively.

You will be prompted for the endpoint URL and whether to make it the default.
The endpoint is checked before saving. Run 'photoshelf-cli login' afterwards
to store a token in the profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile.

If no name is provided, shows the default profile.
Tokens are masked by default; use --show-secrets to reveal them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

var showSecrets bool

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)

	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show token values")
	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show token values")
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}

	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("Run 'photoshelf-cli configure add <name>' to create one.")
		return nil
	}

	return getFormatter().FormatProfileList(os.Stdout, cfg.Profiles, cfg.DefaultName(), showSecrets)
}

func runConfigureAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}

	existing, _ := cfg.GetProfile(name)
	if existing != nil {
		ok, confirmErr := confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name))
		if confirmErr != nil || !ok {
			fmt.Println("Cancelled.")
			return confirmErr
		}
	}

	endpointPrompt := promptui.Prompt{
		Label:    "Endpoint URL",
		Default:  client.DefaultEndpoint,
		Validate: validateEndpoint,
	}
	endpointURL, err := endpointPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	endpointURL = strings.TrimSuffix(endpointURL, "/")

	setAsDefault := len(cfg.Profiles) == 0 || (existing != nil && existing.Default)
	if !setAsDefault {
		setAsDefault, err = confirm("Set as default profile")
		if err != nil {
			return err
		}
	}

	fmt.Print("Testing connection... ")
	if connErr := testServerConnection(cmd.Context(), endpointURL); connErr != nil {
		fmt.Println("FAILED")
		fmt.Printf("Warning: Could not connect to server: %v\n", connErr)

		ok, confirmErr := confirm("Save profile anyway")
		if confirmErr != nil || !ok {
			fmt.Println("Cancelled.")
			return confirmErr
		}
	} else {
		fmt.Println("OK")
	}

	profile := client.Profile{Name: name, Endpoint: endpointURL}
	if existing != nil && existing.Endpoint == endpointURL {
		// Same server: the saved login is still good.
		profile.Email = existing.Email
		profile.Token = existing.Token
	}

	cfg.UpsertProfile(profile)
	if setAsDefault {
		if err := cfg.SetDefault(name); err != nil {
			return err
		}
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if existing != nil {
		fmt.Printf("Profile '%s' updated.\n", name)
	} else {
		fmt.Printf("Profile '%s' added.\n", name)
	}
	if setAsDefault {
		fmt.Println("Set as default profile.")
	}
	fmt.Printf("Run 'photoshelf-cli login --profile %s' to sign in.\n", name)

	return nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := client.LoadConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err = cfg.GetProfile(name); err != nil {
		return err
	}

	ok, err := confirm(fmt.Sprintf("Remove profile '%s'", name))
	if err != nil || !ok {
		fmt.Println("Cancelled.")
		return err
	}

	if err := cfg.RemoveProfile(name); err != nil {
		return fmt.Errorf("remove profile: %w", err)
	}

	if err := cfg.Save(getConfigPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := client.LoadConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.SetDefault(name); err != nil {
		return err
	}

	if err := cfg.Save(getConfigPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Default profile set to '%s'.\n", name)
	return nil
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	cfg, err := client.LoadConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileShow(os.Stdout, *p, p.Name == cfg.DefaultName(), showSecrets)
}

func validateEndpoint(input string) error {
	if input == "" {
		return errors.New("endpoint URL is required")
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

// testServerConnection checks the server's health endpoint.
func testServerConnection(ctx context.Context, endpointURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := client.New(&client.Config{Endpoint: endpointURL}, client.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}
	return c.Health(ctx)
}

// confirm asks a yes/no question. Declining or pressing Ctrl+C answers no.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
