package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, used, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[dump]
print_header = true
print_access_specifiers = true

[list]
use_regex = true
`), 0o644))

	cfg, used, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, Config{
		LogLevel: "debug",
		Dump:     DumpConfig{PrintHeader: true, PrintAccessSpecifiers: true},
		List:     ListConfig{UseRegex: true},
	}, cfg)
}

func TestLoadSearchesConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	path := filepath.Join(home, "pdbtypes", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[list]\ncase_insensitive = true\n"), 0o644))

	cfg, used, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.True(t, cfg.List.CaseInsensitive)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PDBTYPES_DUMP_PRINT_DEPENDENCIES", "true")
	t.Setenv("PDBTYPES_LOG_LEVEL", "error")

	cfg, _, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.True(t, cfg.Dump.PrintDependencies)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	_, _, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level = \"loud\"\n"), 0o644))
	_, _, err = Load(viper.New(), bad)
	assert.ErrorContains(t, err, "log_level")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Config
	require.NoError(t, toml.Unmarshal(data, &decoded))
	assert.Equal(t, Default(), decoded)

	assert.ErrorIs(t, WriteDefault(path, false), ErrExists)
	assert.NoError(t, WriteDefault(path, true))

	cfg, _, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
