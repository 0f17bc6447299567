// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/modsync"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a module in the library and its script in the Godot project",
	Long: `Adds a module: a stub source file in the library, its registration in
src/lib.rs, a gdns script descriptor in the Godot project, and the
manifest entry tying them together. Run from the library root.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(_ *cobra.Command, args []string) error {
	libraryRoot, man, err := loadLibrary()
	if err != nil {
		return fail(err)
	}

	sync := modsync.NewSynchronizer(libraryRoot, man, newLogger())
	module, err := sync.Create(args[0])
	if err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Module created: ") + PathStyle.Render(module.Identifier))
	return nil
}
