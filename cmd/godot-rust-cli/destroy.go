// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/modsync"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <name>",
	Short: "Remove a module from the library and the Godot project",
	Long: `Removes a module's stub source, its registration in src/lib.rs, its
gdns descriptor at the location the manifest records, and the manifest
entry. Run from the library root.`,
	Args: cobra.ExactArgs(1),
	RunE: runDestroy,
}

func runDestroy(_ *cobra.Command, args []string) error {
	libraryRoot, man, err := loadLibrary()
	if err != nil {
		return fail(err)
	}

	sync := modsync.NewSynchronizer(libraryRoot, man, newLogger())
	if err := sync.Destroy(args[0]); err != nil {
		return fail(err)
	}

	fmt.Println(SuccessStyle.Render("Module destroyed"))
	return nil
}
