package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf/client"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := &client.Config{Token: "t"}
	got := cfg.WithDefaults()

	assert.Equal(t, client.DefaultEndpoint, got.Endpoint)
	assert.Empty(t, cfg.Endpoint, "original is not mutated")
}

func TestConfig_ValidateWithAuth(t *testing.T) {
	assert.ErrorIs(t, (&client.Config{}).ValidateWithAuth(), client.ErrTokenRequired)
	assert.NoError(t, (&client.Config{Token: "t"}).ValidateWithAuth())
}

func TestMergeConfig(t *testing.T) {
	merged := client.MergeConfig(
		&client.Config{Endpoint: "http://file", Token: "file-token"},
		nil,
		&client.Config{Endpoint: "http://env"},
		&client.Config{Token: "flag-token"},
	)

	assert.Equal(t, "http://env", merged.Endpoint)
	assert.Equal(t, "flag-token", merged.Token)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PHOTOSHELF_ENDPOINT", "http://env:5708")
	t.Setenv("PHOTOSHELF_TOKEN", "env-token")
	t.Setenv("PHOTOSHELF_PROFILE", "work")
	t.Setenv("PHOTOSHELF_CONFIG", "/tmp/cfg.yaml")

	cfg := client.ConfigFromEnv()
	assert.Equal(t, "http://env:5708", cfg.Endpoint)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "work", client.ProfileFromEnv())
	assert.Equal(t, "/tmp/cfg.yaml", client.ConfigPathFromEnv())
}

func TestConfigFile_Profiles(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cf := &client.ConfigFile{}
		_, err := cf.GetProfile("")
		assert.ErrorIs(t, err, client.ErrNoProfiles)
		assert.Empty(t, cf.DefaultName())
	})

	t.Run("default falls back to first", func(t *testing.T) {
		cf := &client.ConfigFile{Profiles: []client.Profile{{Name: "a"}, {Name: "b"}}}
		p, err := cf.GetProfile("")
		require.NoError(t, err)
		assert.Equal(t, "a", p.Name)
	})

	t.Run("add update remove", func(t *testing.T) {
		cf := &client.ConfigFile{}
		require.NoError(t, cf.AddProfile(client.Profile{Name: "home", Endpoint: "http://nas"}))
		assert.ErrorIs(t, cf.AddProfile(client.Profile{Name: "home"}), client.ErrProfileExists)

		require.NoError(t, cf.UpdateProfile(client.Profile{Name: "home", Endpoint: "http://nas:5708", Token: "t"}))
		assert.ErrorIs(t, cf.UpdateProfile(client.Profile{Name: "work"}), client.ErrProfileNotFound)

		cf.UpsertProfile(client.Profile{Name: "work", Endpoint: "http://work"})
		cf.UpsertProfile(client.Profile{Name: "work", Endpoint: "http://work:80"})
		assert.Equal(t, []string{"home", "work"}, cf.ProfileNames())

		p, err := cf.GetProfile("work")
		require.NoError(t, err)
		assert.Equal(t, "http://work:80", p.Endpoint)

		require.NoError(t, cf.SetDefault("work"))
		assert.Equal(t, "work", cf.DefaultName())
		assert.False(t, cf.Profiles[0].Default)
		assert.ErrorIs(t, cf.SetDefault("nope"), client.ErrProfileNotFound)

		require.NoError(t, cf.RemoveProfile("home"))
		assert.ErrorIs(t, cf.RemoveProfile("home"), client.ErrProfileNotFound)
		assert.Equal(t, []string{"work"}, cf.ProfileNames())
	})
}

func TestConfigFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cf := &client.ConfigFile{Profiles: []client.Profile{
		{Name: "local", Endpoint: client.DefaultEndpoint, Email: "ada@example.com", Token: "secret", Default: true},
	}}
	require.NoError(t, cf.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := client.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cf, loaded)

	p, err := loaded.GetProfile("local")
	require.NoError(t, err)
	assert.Equal(t, &client.Config{Endpoint: client.DefaultEndpoint, Token: "secret"}, client.ConfigFromProfile(p))
	assert.Equal(t, &client.Config{}, client.ConfigFromProfile(nil))
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := client.LoadConfigFile(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
