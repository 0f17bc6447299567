// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
)

// loadLibrary loads the manifest from the current directory and validates
// the library/Godot-project relationship. Commands that mutate the library
// go through this so invalid state aborts before any write.
func loadLibrary() (string, *manifest.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}

	man, err := manifest.Load(cwd)
	if err != nil {
		return "", nil, err
	}
	if err := man.ValidateProjectPath(cwd); err != nil {
		return "", nil, err
	}
	return cwd, man, nil
}
