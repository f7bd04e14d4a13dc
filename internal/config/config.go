// Package config reads the pdbtypes settings file, config.toml in the
// user's configuration directory, with PDBTYPES_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	appDir     = "pdbtypes"
	envPrefix  = "PDBTYPES"

	fileMode = 0o644
	dirMode  = 0o755

	tempFilePattern = ".config-*.toml.tmp"
)

// Keys understood in the settings file.
const (
	KeyLogLevel              = "log_level"
	KeyPrintHeader           = "dump.print_header"
	KeyPrintDependencies     = "dump.print_dependencies"
	KeyPrintAccessSpecifiers = "dump.print_access_specifiers"
	KeyCaseInsensitive       = "list.case_insensitive"
	KeyUseRegex              = "list.use_regex"
)

// ErrExists is returned by WriteDefault when the file is already there.
var ErrExists = errors.New("config: file already exists")

// Config holds the defaults applied to commands whose flags are not set.
type Config struct {
	LogLevel string     `toml:"log_level" mapstructure:"log_level"`
	Dump     DumpConfig `toml:"dump" mapstructure:"dump"`
	List     ListConfig `toml:"list" mapstructure:"list"`
}

// DumpConfig holds reconstruction defaults.
type DumpConfig struct {
	PrintHeader           bool `toml:"print_header" mapstructure:"print_header"`
	PrintDependencies     bool `toml:"print_dependencies" mapstructure:"print_dependencies"`
	PrintAccessSpecifiers bool `toml:"print_access_specifiers" mapstructure:"print_access_specifiers"`
}

// ListConfig holds type filter defaults.
type ListConfig struct {
	CaseInsensitive bool `toml:"case_insensitive" mapstructure:"case_insensitive"`
	UseRegex        bool `toml:"use_regex" mapstructure:"use_regex"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{LogLevel: "warn"}
}

// DefaultPath returns the settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config directory: %w", err)
	}
	return filepath.Join(dir, appDir, configName+"."+configType), nil
}

// Load reads settings into v. An empty path searches the default location,
// where a missing file is not an error; an explicit path must exist. It
// returns the effective settings and the file used, if any.
func Load(v *viper.Viper, path string) (Config, string, error) {
	if v == nil {
		v = viper.New()
	}

	def := Default()
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyPrintHeader, def.Dump.PrintHeader)
	v.SetDefault(KeyPrintDependencies, def.Dump.PrintDependencies)
	v.SetDefault(KeyPrintAccessSpecifiers, def.Dump.PrintAccessSpecifiers)
	v.SetDefault(KeyCaseInsensitive, def.List.CaseInsensitive)
	v.SetDefault(KeyUseRegex, def.List.UseRegex)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		if dir, err := DefaultPath(); err == nil {
			v.AddConfigPath(filepath.Dir(dir))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, "", fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("config: decode: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return data, nil
}

// WriteDefault writes the built-in settings to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	data, err := Default().Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: replace %s: %w", path, err)
	}
	cleanup = false
	return nil
}
