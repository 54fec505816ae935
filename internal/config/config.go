// Package config loads the staffwizard CLI configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. STAFFWIZARD_DEFAULT_SCHOOL.
const EnvPrefix = "STAFFWIZARD_"

// Config is the CLI configuration.
type Config struct {
	EnabledRoles  []string `koanf:"enabled_roles" validate:"required,min=1,dive,required"`
	DefaultSchool string   `koanf:"default_school"`
	SchemaDir     string   `koanf:"schema_dir"`
	LogLevel      string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	Color         bool     `koanf:"color"`
	Entity        string   `koanf:"entity" validate:"required"`
}

// Defaults returns the built-in values applied before any file or env.
func Defaults() map[string]any {
	return map[string]any{
		"enabled_roles":  []string{"driver", "conductor", "staff"},
		"default_school": "",
		"schema_dir":     "",
		"log_level":      "warn",
		"color":          true,
		"entity":         "staff",
	}
}

// Load applies defaults, then the JSON file at path when it exists, then
// environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: default %q: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.EnabledRoles = splitRoles(cfg.EnabledRoles)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// envTransform converts STAFFWIZARD_DEFAULT_SCHOOL -> default_school.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// splitRoles accepts comma-delimited entries so env overrides can carry a
// list.
func splitRoles(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, role := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(role); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
