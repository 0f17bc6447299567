// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for godot-rust-cli.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string

	// cfg is the loaded tool configuration, available to all commands after
	// initRootConfig runs.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "godot-rust-cli",
		Short: "Manage a Rust GDNative component library for a Godot project",
		Long: TitleStyle.Render("godot-rust-cli") + SubtitleStyle.Render(" - Rust components for Godot projects") + `

godot-rust-cli manages a Rust library of GDNative modules that lives
next to a Godot project: it scaffolds the library, keeps module
source, registration, and script descriptors in sync, builds the
dynamic libraries (once, continuously, or for every registered
platform), and manages container-backed cross-compilation toolchains.

` + SubtitleStyle.Render("Quick Start:") + `
  1. godot-rust-cli new MyComponents ./my-game
  2. cd my_components
  3. godot-rust-cli create Player
  4. godot-rust-cli build --watch

` + SubtitleStyle.Render("Examples:") + `
  godot-rust-cli new MyComponents ./my-game   Scaffold a library
  godot-rust-cli create Player                Add a module
  godot-rust-cli destroy Player               Remove a module
  godot-rust-cli build --release --all        Build every platform
  godot-rust-cli add-platform windows         Register a cross target`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/godot-rust-cli/config.toml)")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(addPlatformCmd)
	rootCmd.AddCommand(removePlatformCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded

	if !verbose {
		verbose = cfg.Verbose
	}
}

// newLogger returns the logger internal services report progress through.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
