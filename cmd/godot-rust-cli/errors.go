// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/robertcorponoi/godot-rust-cli/internal/container"
	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/toolchain"
)

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// guidanceFor returns rendered markdown guidance for the known failure
// classes that have a registered issue.
func guidanceFor(err error) (string, bool) {
	var id issue.Id
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		id = issue.ManifestNotFoundId
	case errors.Is(err, manifest.ErrCorrupt):
		id = issue.ManifestCorruptId
	case errors.Is(err, toolchain.ErrUnsupportedPlatform):
		id = issue.UnsupportedPlatformId
	case errors.Is(err, exec.ErrNotFound):
		id = issue.CompilerNotFoundId
	default:
		var engineErr *container.ErrEngineNotAvailable
		if !errors.As(err, &engineErr) {
			return "", false
		}
		id = issue.ContainerEngineNotFoundId
	}

	iss := issue.Lookup(id)
	if iss == nil {
		return "", false
	}
	out, renderErr := iss.Render()
	if renderErr != nil {
		return "", false
	}
	return out, true
}

// fail prints guidance for known failure classes and converts err into the
// exit error fang reports.
func fail(err error) error {
	if verbose {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, true))
	}
	if guidance, ok := guidanceFor(err); ok {
		fmt.Fprintln(os.Stderr, guidance)
	}
	return &ExitError{Code: 1, Err: err}
}
