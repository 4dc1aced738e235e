package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"directory-sync/core/audit"
	"directory-sync/core/database"
	"directory-sync/core/logger"
	"directory-sync/core/reconcile"
	"directory-sync/core/server"
	"directory-sync/core/storage"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Target kinds.
const (
	TargetDatabase = "database"
	TargetStorage  = "storage"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP trigger.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Source holds configuration for the authoritative HR database.
	Source SourceConfig `mapstructure:"source"`
	// Target holds configuration for the directory being reconciled.
	Target TargetConfig `mapstructure:"target"`
	// Sync holds the reconciliation settings.
	Sync reconcile.Config `mapstructure:"sync"`
	// Audit holds configuration for archiving pass reports.
	Audit audit.Config `mapstructure:"audit"`
}

// SourceConfig locates the source user table.
type SourceConfig struct {
	Database database.Config      `mapstructure:"database"`
	Table    database.TableConfig `mapstructure:"table"`
}

// TargetConfig locates the target directory.
type TargetConfig struct {
	// Kind selects the directory backend (database, storage).
	Kind string `mapstructure:"kind" default:"database"`
	// Database and Table are used by the database kind.
	Database database.Config      `mapstructure:"database"`
	Table    database.TableConfig `mapstructure:"table"`
	// Prefix is the object key prefix used by the storage kind.
	Prefix string `mapstructure:"prefix" default:"directory/users"`
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Target.Kind {
	case TargetDatabase, TargetStorage:
	default:
		return fmt.Errorf("unsupported target kind %q", c.Target.Kind)
	}
	if c.Sync.Workers < 0 {
		return fmt.Errorf("sync workers must not be negative, got %d", c.Sync.Workers)
	}
	if err := c.Source.Table.Validate(); err != nil {
		return fmt.Errorf("source table: %w", err)
	}
	if err := c.Target.Table.Validate(); err != nil {
		return fmt.Errorf("target table: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from the .env file, an optional config.yaml
// in path, and environment variables (highest precedence).
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (e.g. SYNC_DRY_RUN -> sync.dry_run)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToMapHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&config, hook); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv.
		// Map defaults stay strings and are expanded by stringToMapHookFunc.
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// stringToMapHookFunc decodes "k1=v1,k2=v2" strings into map[string]string.
func stringToMapHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Map ||
			t.Key().Kind() != reflect.String || t.Elem().Kind() != reflect.String {
			return data, nil
		}
		return ParseMap(data.(string))
	}
}

// ParseMap parses a comma separated list of key=value pairs.
// Whitespace around keys and values is trimmed; empty items are skipped.
func ParseMap(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, val, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid map entry %q, expected key=value", item)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out, nil
}
