package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/photoshelf/config"
)

// writeConfig marshals doc as YAML into a temp file and returns its path.
func writeConfig(t *testing.T, name string, doc map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5708, cfg.Server.Port)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, 20, cfg.Server.MaxFilesPerUpload)
	assert.Equal(t, 4, cfg.Server.UploadConcurrency)
	assert.Equal(t, 30, cfg.Service.CleanupTimeout)
	assert.Equal(t, 3600, cfg.Service.PresignTTL)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "photoshelf.db", cfg.Database.DSN)
	assert.Equal(t, "accounts", cfg.Database.Tables.Accounts)
	assert.Equal(t, "projects", cfg.Database.Tables.Projects)
	assert.Equal(t, "photos", cfg.Database.Tables.Photos)
	assert.Equal(t, "filesystem", cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, 86400, cfg.Auth.TokenTTL)
	assert.Equal(t, "photoshelf", cfg.Auth.Issuer)
	assert.False(t, cfg.IsProd())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", map[string]any{
		"env": "prod",
		"server": map[string]any{
			"port":                 8080,
			"max_upload_size":      1024,
			"max_files_per_upload": 5,
		},
		"service": map[string]any{"cleanup_timeout": 10, "presign_ttl": 600},
		"database": map[string]any{
			"type":   "postgres",
			"dsn":    "postgres://localhost/test",
			"tables": map[string]any{"photos": "shelf_photos"},
		},
		"storage": map[string]any{
			"backend":        "s3",
			"bucket":         "photos",
			"region":         "eu-west-1",
			"endpoint":       "http://localhost:9000",
			"use_path_style": true,
		},
		"auth": map[string]any{"jwt_secret": "0123456789abcdef0123456789abcdef", "token_ttl": 3600},
		"log":  map[string]any{"level": "debug"},
	})

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "shelf_photos", cfg.Database.Tables.Photos)
	assert.Equal(t, "accounts", cfg.Database.Tables.Accounts, "unset names keep defaults")
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, "debug", cfg.Log.Level)

	svc := cfg.ServiceConfig()
	assert.Equal(t, 10*time.Second, svc.CleanupTimeout)
	assert.Equal(t, 10*time.Minute, svc.DefaultPresignTTL)
	assert.Equal(t, int64(1024), svc.MaxUploadSize)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	base := writeConfig(t, "base.yaml", map[string]any{
		"server":   map[string]any{"port": 5708},
		"database": map[string]any{"type": "sqlite", "dsn": "base.db"},
		"storage":  map[string]any{"backend": "memory"},
	})
	override := writeConfig(t, "override.yaml", map[string]any{
		"server": map[string]any{"port": 9000},
	})

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "base.db", cfg.Database.DSN)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"invalid port", map[string]any{"server": map[string]any{"port": 99999}}},
		{"unknown database", map[string]any{"database": map[string]any{"type": "mysql"}}},
		{"unknown backend", map[string]any{"storage": map[string]any{"backend": "ftp"}}},
		{"s3 without bucket", map[string]any{"storage": map[string]any{"backend": "s3"}}},
		{"minio without endpoint", map[string]any{"storage": map[string]any{"backend": "minio", "bucket": "b"}}},
		{"short signing secret", map[string]any{"storage": map[string]any{"signing_secret": "short"}}},
		{"short jwt secret", map[string]any{"auth": map[string]any{"jwt_secret": "short"}}},
		{"presign beyond a week", map[string]any{"service": map[string]any{"presign_ttl": 604801}}},
		{"bad log level", map[string]any{"log": map[string]any{"level": "verbose"}}},
		{"bad log format", map[string]any{"log": map[string]any{"format": "xml"}}},
		{"bad table name", map[string]any{"database": map[string]any{"tables": map[string]any{"photos": "Photos"}}}},
		{"duplicate table names", map[string]any{"database": map[string]any{"tables": map[string]any{"photos": "projects"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.doc)

			_, err := config.Load([]string{path}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_WithCORS(t *testing.T) {
	path := writeConfig(t, "config.yaml", map[string]any{
		"cors": map[string]any{
			"enabled":         true,
			"allowed_origins": []string{"https://example.com", "https://app.example.com"},
			"allowed_methods": []string{"GET", "POST"},
			"max_age":         600,
		},
	})

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Authorization", "Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("PHOTOSHELF_SERVER_PORT", "9090")
	t.Setenv("PHOTOSHELF_DATABASE_TYPE", "postgres")
	t.Setenv("PHOTOSHELF_AUTH_JWT_SECRET", "env-secret-env-secret-env-secret-00")
	t.Setenv("PHOTOSHELF_STORAGE_BACKEND", "memory")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "env-secret-env-secret-env-secret-00", cfg.Auth.JWTSecret)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoad_Flags(t *testing.T) {
	t.Setenv("PHOTOSHELF_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("db-dsn", "", "")
	flags.String("storage-backend", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7000", "--storage-backend", "memory"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port, "flags beat env")
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "photoshelf.db", cfg.Database.DSN, "unset flags are ignored")
}
