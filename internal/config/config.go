// SPDX-License-Identifier: MPL-2.0

// Package config loads the user-level tool configuration. This is distinct
// from the per-library manifest: the manifest describes one library, while
// the tool config carries machine-wide preferences such as the container
// engine used for toolchain images and watch-mode tuning.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "godot-rust-cli"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix is the prefix for environment variable overrides, e.g.
	// GODOT_RUST_CLI_CONTAINER_ENGINE.
	EnvPrefix = "GODOT_RUST_CLI"
)

//go:embed config_schema.cue
var configSchema string

type (
	// Config is the typed tool configuration.
	Config struct {
		// ContainerEngine selects the engine for toolchain images:
		// "auto", "docker", or "podman".
		ContainerEngine string `mapstructure:"container_engine"`
		// Verbose enables verbose diagnostic output.
		Verbose bool `mapstructure:"verbose"`
		// Watch tunes the build --watch loop.
		Watch WatchConfig `mapstructure:"watch"`
	}

	// WatchConfig tunes the continuous-build loop.
	WatchConfig struct {
		// DebounceMs is the quiet period after the last filesystem event
		// before a rebuild starts.
		DebounceMs int `mapstructure:"debounce_ms"`
		// ClearScreen clears the terminal before each rebuild.
		ClearScreen bool `mapstructure:"clear_screen"`
	}
)

// Debounce returns the configured debounce as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: "auto",
		Verbose:         false,
		Watch: WatchConfig{
			DebounceMs:  500,
			ClearScreen: false,
		},
	}
}

// ConfigDir returns the tool configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS,
// and $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the tool configuration. Defaults apply when no config file
// exists; an existing file is merged over the defaults and validated against
// the embedded CUE schema so typos fail loudly instead of being silently
// ignored.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
	v.SetDefault("watch.clear_screen", defaults.Watch.ClearScreen)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		v.SetConfigFile(configFilePathOverride)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, issue.WrapWithOperation(err, "locate configuration directory")
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(v.ConfigFileUsed()).
				WithSuggestion("Check the TOML syntax of the config file").
				Wrap(err).
				Build()
		}
		// No config file: defaults plus env overrides.
	} else if err := validateSettings(v.AllSettings()); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(v.ConfigFileUsed()).
			WithSuggestion("Remove or fix the offending key; run with defaults to compare").
			Wrap(err).
			Build()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithOperation(err, "decode configuration")
	}

	return &cfg, nil
}

// validateSettings unifies the loaded settings with the embedded CUE schema.
// The schema closes the allowed key set and constrains values, so an unknown
// key or out-of-range debounce is a load error rather than silent drift.
func validateSettings(settings map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(settings)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := schema.Unify(value).Validate(); err != nil {
		return fmt.Errorf("configuration does not match schema: %w", err)
	}
	return nil
}
