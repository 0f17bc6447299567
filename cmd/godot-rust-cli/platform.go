// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/container"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/toolchain"
)

var addPlatformCmd = &cobra.Command{
	Use:   "add-platform <name>",
	Short: "Register a cross-compilation platform and build its toolchain image",
	Long: fmt.Sprintf(`Registers a platform for cross builds: writes its Dockerfile, wires it
into Cross.toml, records it in the manifest, and builds the toolchain
container image. Supported platforms: %s.`,
		strings.Join(toolchain.SupportedPlatforms(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: runAddPlatform,
}

var removePlatformCmd = &cobra.Command{
	Use:   "remove-platform <name>",
	Short: "Unregister a cross-compilation platform",
	Long: `Removes a platform: deletes its Dockerfile, drops its Cross.toml entry,
removes the toolchain image, and removes the manifest entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemovePlatform,
}

func runAddPlatform(cmd *cobra.Command, args []string) error {
	libraryRoot, man, engine, err := platformManagerInputs()
	if err != nil {
		return fail(err)
	}

	mgr := toolchain.NewManager(libraryRoot, man, engine,
		toolchain.WithLogger(newLogger()),
		toolchain.WithOutput(os.Stdout),
	)
	if err := mgr.Add(cmd.Context(), args[0]); err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Platform added: ") + PathStyle.Render(args[0]))
	return nil
}

func runRemovePlatform(cmd *cobra.Command, args []string) error {
	libraryRoot, man, engine, err := platformManagerInputs()
	if err != nil {
		return fail(err)
	}

	mgr := toolchain.NewManager(libraryRoot, man, engine,
		toolchain.WithLogger(newLogger()),
		toolchain.WithOutput(os.Stdout),
	)
	if err := mgr.Remove(cmd.Context(), args[0]); err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Platform removed: ") + PathStyle.Render(args[0]))
	return nil
}

// platformManagerInputs loads the library and resolves the configured
// container engine. Both platform commands need the same pair.
func platformManagerInputs() (string, *manifest.Manifest, container.Engine, error) {
	libraryRoot, man, err := loadLibrary()
	if err != nil {
		return "", nil, nil, err
	}

	engine, err := container.NewEngine(container.EngineType(cfg.ContainerEngine))
	if err != nil {
		return "", nil, nil, err
	}
	return libraryRoot, man, engine, nil
}
