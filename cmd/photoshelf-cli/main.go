package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf/client"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	token       string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "photoshelf-cli",
	Version: version,
	Short:   "Client for a photoshelf server",
	Long: `photoshelf-cli talks to a photoshelf server over its HTTP API.

Log in once with 'photoshelf-cli login'; the token is saved in the selected
profile of ~/.photoshelf/config.yaml and used by every other command.

Settings are resolved from the profile, then PHOTOSHELF_ENDPOINT and
PHOTOSHELF_TOKEN, then the --endpoint and --token flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.photoshelf/config.yaml, env: PHOTOSHELF_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: PHOTOSHELF_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "s", "", "server URL (default: http://localhost:5708, env: PHOTOSHELF_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token (env: PHOTOSHELF_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, deleteAccountCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(uploadCmd, photosCmd, downloadCmd, urlCmd, deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var reported *exitError
		if !errors.As(err, &reported) {
			_ = getFormatter().FormatError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// exitError fails the command after its output already described the failures.
type exitError struct{}

func (e *exitError) Error() string {
	return "one or more operations failed"
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := client.ConfigPathFromEnv(); path != "" {
		return path
	}
	return client.DefaultConfigPath()
}

func selectedProfile() string {
	if profileName != "" {
		return profileName
	}
	return client.ProfileFromEnv()
}

// loadConfigFile returns an empty config when the file does not exist yet.
func loadConfigFile() (*client.ConfigFile, error) {
	cf, err := client.LoadConfigFile(getConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		return &client.ConfigFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cf, nil
}

// buildConfig merges the profile, env vars and flags (flags take precedence).
// A missing default config file is fine; a named profile or explicit file
// must exist.
func buildConfig() (*client.Config, error) {
	var configs []*client.Config

	cf, err := client.LoadConfigFile(getConfigPath())
	switch {
	case err == nil:
		p, profileErr := cf.GetProfile(selectedProfile())
		switch {
		case profileErr == nil:
			configs = append(configs, client.ConfigFromProfile(p))
		case selectedProfile() != "":
			return nil, profileErr
		}
	case cfgFile != "" || selectedProfile() != "":
		return nil, err
	}

	configs = append(configs,
		client.ConfigFromEnv(),
		&client.Config{Endpoint: endpoint, Token: token},
	)

	return client.MergeConfig(configs...), nil
}

func getFormatter() client.Formatter {
	return client.NewFormatter(jsonOutput, quiet)
}

func getClient() (*client.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg)
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
