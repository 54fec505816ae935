package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"driver", "conductor", "staff"}, cfg.EnabledRoles)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "staff", cfg.Entity)
	assert.True(t, cfg.Color)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staffwizard.json")
	content := `{
		"enabled_roles": ["driver"],
		"default_school": "SCH-7",
		"log_level": "DEBUG",
		"color": false
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"driver"}, cfg.EnabledRoles)
	assert.Equal(t, "SCH-7", cfg.DefaultSchool)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Color)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staffwizard.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"default_school": "SCH-7"}`), 0o644))

	t.Setenv("STAFFWIZARD_DEFAULT_SCHOOL", "SCH-9")
	t.Setenv("STAFFWIZARD_ENABLED_ROLES", "driver, conductor")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SCH-9", cfg.DefaultSchool)
	assert.Equal(t, []string{"driver", "conductor"}, cfg.EnabledRoles)
}

func TestLoad_ValidationErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staffwizard.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "chatty"}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"log_level": `), 0o644))
	_, err = Load(broken)
	require.Error(t, err)
}

func TestSplitRoles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"driver", "staff"}, splitRoles([]string{" driver ,", "", "staff"}))
	assert.Nil(t, splitRoles(nil))
}
