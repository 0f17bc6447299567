// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/build"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/scaffold"
)

var (
	newPlugin    bool
	newSkipBuild bool

	newCmd = &cobra.Command{
		Use:   "new <name> <godot-project-dir>",
		Short: "Scaffold a new Rust component library next to a Godot project",
		Long: `Creates the cargo package for a new component library, writes its
manifest, and places the gdnative structure into the Godot project.
An initial debug build runs afterwards so Godot sees a loadable
library right away; pass --skip-build to defer it.`,
		Args: cobra.ExactArgs(2),
		RunE: runNew,
	}
)

func init() {
	newCmd.Flags().BoolVar(&newPlugin, "plugin", false, "scaffold a plugin library under the Godot project's addons/ tree")
	newCmd.Flags().BoolVar(&newSkipBuild, "skip-build", false, "skip the initial debug build")
}

func runNew(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fail(err)
	}

	s := scaffold.New(scaffold.WithLogger(newLogger()))
	libraryRoot, err := s.Create(cmd.Context(), cwd, scaffold.Options{
		Name:            args[0],
		GodotProjectDir: args[1],
		Plugin:          newPlugin,
	})
	if err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Library created at ") + PathStyle.Render(libraryRoot))

	if newSkipBuild {
		return nil
	}

	man, err := manifest.Load(libraryRoot)
	if err != nil {
		return fail(err)
	}
	orch := build.NewOrchestrator(libraryRoot, man, build.WithLogger(newLogger()))
	if _, err := orch.Build(cmd.Context(), build.Options{}); err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Initial build complete"))
	return nil
}
