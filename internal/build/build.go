// SPDX-License-Identifier: MPL-2.0

// Package build runs the compiler toolchain over the library and places the
// resulting dynamic libraries where the Godot project expects them.
//
// The native platform builds with cargo; registered cross platforms build
// with cross inside their toolchain containers. Each target builds and fails
// independently: one broken platform never blocks the others.
package build

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrUnknownPlatform is returned when no build target exists for a
	// platform name.
	ErrUnknownPlatform = errors.New("unknown platform")

	// platformTriples maps platform names to the toolchain triples their
	// artifacts are built with.
	platformTriples = map[string]string{
		"windows":     "x86_64-pc-windows-gnu",
		"linux":       "x86_64-unknown-linux-gnu",
		"macos":       "x86_64-apple-darwin",
		"android":     "x86_64-linux-android",
		"android.arm": "aarch64-linux-android",
	}
)

type (
	// Profile selects the compiler profile and names the artifact directory
	// inside target/.
	Profile string

	// Target is one platform to build the library for.
	Target struct {
		// Platform is the platform name used in the manifest and in the
		// Godot bin directory layout.
		Platform string
		// Triple is the toolchain triple passed to the compiler.
		Triple string
		// Cross selects the cross tool instead of cargo.
		Cross bool
	}

	// ToolError reports a compiler invocation that exited non-zero. It is
	// fatal for its target only.
	ToolError struct {
		Tool     string
		Args     []string
		ExitCode int
		Output   string
		Cause    error
	}
)

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// Error implements the error interface.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Tool, strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Cause }

// SelectProfile returns the profile for the release flag.
func SelectProfile(release bool) Profile {
	if release {
		return ProfileRelease
	}
	return ProfileDebug
}

// TripleForPlatform returns the toolchain triple for a platform name.
func TripleForPlatform(platform string) (string, error) {
	triple, ok := platformTriples[strings.ToLower(platform)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return triple, nil
}

// NativePlatform returns the platform name of the machine running the tool.
func NativePlatform() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}
	return runtime.GOOS
}

// NativeTarget returns the build target for the machine running the tool.
func NativeTarget() (Target, error) {
	platform := NativePlatform()
	triple, err := TripleForPlatform(platform)
	if err != nil {
		return Target{}, err
	}
	return Target{Platform: platform, Triple: triple}, nil
}

// CrossTarget returns the build target for a registered cross platform.
func CrossTarget(platform string) (Target, error) {
	triple, err := TripleForPlatform(platform)
	if err != nil {
		return Target{}, err
	}
	return Target{Platform: platform, Triple: triple, Cross: true}, nil
}

// ArtifactName returns the dynamic library file name a build of the library
// produces for a platform. Windows drops the lib prefix; extensions follow
// the platform's linker conventions.
func ArtifactName(platform, libStem string) string {
	switch strings.ToLower(platform) {
	case "windows":
		return libStem + ".dll"
	case "macos":
		return "lib" + libStem + ".dylib"
	default:
		return "lib" + libStem + ".so"
	}
}
