package client

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the default server endpoint URL.
const DefaultEndpoint = "http://localhost:5708"

// Profile holds the connection settings for one server. Token is the bearer
// token saved by 'photoshelf-cli login'.
type Profile struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Email    string `yaml:"email,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Default  bool   `yaml:"default,omitempty"`
}

// ConfigFile holds the full config file structure with multiple profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// GetProfile returns the profile by name.
// If name is empty, returns the default profile.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	if name == "" {
		return c.GetDefaultProfile()
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the profile marked as default, or the first one.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range c.Profiles {
		if c.Profiles[i].Default {
			return &c.Profiles[i], nil
		}
	}

	return &c.Profiles[0], nil
}

// DefaultName returns the name of the default profile, or "" when there are none.
func (c *ConfigFile) DefaultName() string {
	p, err := c.GetDefaultProfile()
	if err != nil {
		return ""
	}
	return p.Name
}

// AddProfile adds a new profile. Returns ErrProfileExists if a profile
// with the same name already exists.
func (c *ConfigFile) AddProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces an existing profile. Returns ErrProfileNotFound
// if the profile doesn't exist.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
}

// UpsertProfile adds p or replaces the profile with the same name.
func (c *ConfigFile) UpsertProfile(p Profile) {
	if err := c.UpdateProfile(p); err != nil {
		c.Profiles = append(c.Profiles, p)
	}
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// SetDefault marks name as the default profile and clears the flag elsewhere.
func (c *ConfigFile) SetDefault(name string) error {
	found := false
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
		found = found || c.Profiles[i].Default
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}

// ProfileNames returns a list of all profile names.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

// Save writes the config to path, creating the parent directory if needed.
// The file holds tokens, so it is written owner-only.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile loads the config file from the specified path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigPath returns ~/.photoshelf/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".photoshelf", "config.yaml")
}

// Config is the resolved connection used by Client.
type Config struct {
	Endpoint string
	Token    string
}

// WithDefaults returns a copy with Endpoint defaulted to DefaultEndpoint.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}

// ValidateWithAuth checks that a token is present.
func (c *Config) ValidateWithAuth() error {
	if c.Token == "" {
		return ErrTokenRequired
	}
	return nil
}

// ConfigFromProfile creates a Config from a Profile.
func ConfigFromProfile(p *Profile) *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		Endpoint: p.Endpoint,
		Token:    p.Token,
	}
}

// ConfigFromEnv reads PHOTOSHELF_ENDPOINT and PHOTOSHELF_TOKEN.
func ConfigFromEnv() *Config {
	return &Config{
		Endpoint: os.Getenv("PHOTOSHELF_ENDPOINT"),
		Token:    os.Getenv("PHOTOSHELF_TOKEN"),
	}
}

// ProfileFromEnv returns the profile name from PHOTOSHELF_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv("PHOTOSHELF_PROFILE")
}

// ConfigPathFromEnv returns the config file path from PHOTOSHELF_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv("PHOTOSHELF_CONFIG")
}

// MergeConfig merges configs, later ones taking precedence. Empty strings
// never override earlier values.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if cfg.Endpoint != "" {
			result.Endpoint = cfg.Endpoint
		}
		if cfg.Token != "" {
			result.Token = cfg.Token
		}
	}
	return result
}
