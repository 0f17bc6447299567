// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/robertcorponoi/godot-rust-cli/internal/build"
	"github.com/robertcorponoi/godot-rust-cli/internal/watch"
)

var (
	buildRelease bool
	buildWatch   bool
	buildAll     bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the library and copy artifacts into the Godot project",
		Long: `Compiles the library with cargo (or cross for registered platforms)
and copies each produced dynamic library into the Godot project's
gdnative bin directory. Run from the library root.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().BoolVar(&buildRelease, "release", false, "build with the release profile")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "rebuild whenever library sources change")
	buildCmd.Flags().BoolVar(&buildAll, "all", false, "also build every registered platform with cross")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	libraryRoot, man, err := loadLibrary()
	if err != nil {
		return fail(err)
	}

	orch := build.NewOrchestrator(libraryRoot, man, build.WithLogger(newLogger()))

	if !buildWatch {
		if _, err := orch.Build(cmd.Context(), build.Options{
			Release:      buildRelease,
			AllPlatforms: buildAll,
		}); err != nil {
			return fail(err)
		}
		fmt.Println(SuccessStyle.Render("Build complete"))
		return nil
	}

	return runBuildWatch(cmd.Context(), libraryRoot, orch)
}

// runBuildWatch performs one initial build honoring the flags, then
// watches the library sources and rebuilds the native target on change.
// Cross builds are skipped while watching: container round-trips are too
// slow for an edit loop, and Godot reloads the native library anyway.
func runBuildWatch(ctx context.Context, libraryRoot string, orch *build.Orchestrator) error {
	rebuild := func(ctx context.Context) error {
		_, err := orch.Build(ctx, build.Options{Release: buildRelease})
		if err == nil {
			fmt.Printf("[%s] waiting for changes...\n", time.Now().Format("2006-01-02 15:04:05"))
		}
		return err
	}

	if _, err := orch.Build(ctx, build.Options{
		Release:      buildRelease,
		AllPlatforms: buildAll,
	}); err != nil {
		// A broken initial state should not kill the loop: the point of
		// watch mode is to pick up the fix on the next save.
		fmt.Println(WarningStyle.Render("Initial build failed; watching for changes"))
	} else {
		fmt.Printf("[%s] waiting for changes...\n", time.Now().Format("2006-01-02 15:04:05"))
	}

	w, err := watch.New(watch.Config{
		BaseDir:     filepath.Join(libraryRoot, "src"),
		Debounce:    cfg.Watch.Debounce(),
		ClearScreen: cfg.Watch.ClearScreen,
		OnRebuild:   rebuild,
	})
	if err != nil {
		return fail(err)
	}

	if err := w.Run(ctx); err != nil {
		return fail(err)
	}
	return nil
}
