package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database"
	shelfhttp "github.com/sagarc03/photoshelf/http"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PHOTOSHELF"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for photoshelf.
type Config struct {
	Env      string               `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Server   ServerConfig         `mapstructure:"server"`
	Service  ServiceConfig        `mapstructure:"service"`
	Database database.Config      `mapstructure:"database"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Auth     AuthConfig           `mapstructure:"auth"`
	CORS     shelfhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// IsProd reports whether the production environment is selected.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize     int64 `mapstructure:"max_upload_size" validate:"min=0"`
	MaxFilesPerUpload int   `mapstructure:"max_files_per_upload" validate:"min=1,max=1000"`
	UploadConcurrency int   `mapstructure:"upload_concurrency" validate:"min=1,max=64"`
	SecureCookies     bool  `mapstructure:"secure_cookies"`
}

// ServiceConfig holds service-level configuration. Durations are in seconds.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"`
	PresignTTL     int `mapstructure:"presign_ttl" validate:"min=1,max=604800"`
}

// ServiceConfig converts the service and server sections for photoshelf.NewService.
func (c *Config) ServiceConfig() photoshelf.ServiceConfig {
	return photoshelf.ServiceConfig{
		CleanupTimeout:    time.Duration(c.Service.CleanupTimeout) * time.Second,
		MaxUploadSize:     c.Server.MaxUploadSize,
		UploadConcurrency: c.Server.UploadConcurrency,
		DefaultPresignTTL: time.Duration(c.Service.PresignTTL) * time.Second,
	}
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=s3 minio filesystem memory"`

	// s3 and minio
	Bucket       string `mapstructure:"bucket" validate:"required_if=Backend s3,required_if=Backend minio"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint" validate:"required_if=Backend minio"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`

	// filesystem
	Path          string `mapstructure:"path" validate:"required_if=Backend filesystem"`
	PublicURL     string `mapstructure:"public_url" validate:"omitempty,url"`
	SigningSecret string `mapstructure:"signing_secret" validate:"omitempty,min=32"`
}

// AuthConfig holds access token configuration. The secret is checked by the
// commands that issue tokens, so offline commands run without one.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenTTL  int    `mapstructure:"token_ttl" validate:"min=60"`
	Issuer    string `mapstructure:"issuer"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=auto text json"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":         "database.type",
	"db-dsn":          "database.dsn",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.path",
	"bucket":          "storage.bucket",
	"port":            "server.port",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_upload_size", 32<<20)
	v.SetDefault("server.max_files_per_upload", shelfhttp.DefaultMaxFilesPerUpload)
	v.SetDefault("server.upload_concurrency", photoshelf.DefaultUploadConcurrency)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("service.cleanup_timeout", int(photoshelf.DefaultCleanupTimeout/time.Second))
	v.SetDefault("service.presign_ttl", int(photoshelf.DefaultPresignTTL/time.Second))

	tables := photoshelf.DefaultTables()
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "photoshelf.db")
	v.SetDefault("database.tables.accounts", tables.Accounts)
	v.SetDefault("database.tables.projects", tables.Projects)
	v.SetDefault("database.tables.photos", tables.Photos)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.public_url", "http://localhost:5708")
	v.SetDefault("storage.region", "us-east-1")
	// empty defaults make the keys visible to AutomaticEnv during Unmarshal
	for _, key := range []string{
		"storage.bucket", "storage.endpoint", "storage.access_key", "storage.secret_key", "storage.signing_secret",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.create_bucket", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*60*60)
	v.SetDefault("auth.issuer", "photoshelf")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Database.Tables.WithDefaults().Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
