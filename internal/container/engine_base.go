// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the shared implementation for CLI-based
	// container engines. Docker and Podman embed it; methods identical
	// across engines (BuildImage, RemoveImage, argument shaping, command
	// helpers) live here while engine-specific probes (Available, Version,
	// ImageExists) stay on the concrete types.
	BaseCLIEngine struct {
		binaryPath  string
		execCommand ExecCommandFunc
	}

	// BuildError is returned when an image build exits non-zero. It carries
	// the captured diagnostics so the failure can be surfaced without the
	// caller re-running the build.
	BuildError struct {
		Engine     string
		Dockerfile string
		Tag        string
		ExitCode   int
		Stderr     string
		Cause      error
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s build of image %q from %s failed", e.Engine, e.Tag, e.Dockerfile)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if diag := strings.TrimSpace(e.Stderr); diag != "" {
		msg += ": " + diag
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error { return e.Cause }

// NewBaseCLIEngine creates a base engine for the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithExecCommand overrides the exec function, used by tests to record and
// fake subprocess invocations.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = fn }
}

// BinaryPath returns the resolved engine binary path, empty when the binary
// was not found on PATH.
func (e *BaseCLIEngine) BinaryPath() string { return e.binaryPath }

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// BuildImageArgs shapes the argument slice for an image build.
func (e *BaseCLIEngine) BuildImageArgs(opts ImageBuildOptions) []string {
	args := []string{"build", "-f", opts.Dockerfile, "-t", opts.Tag}
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}

// RemoveImageArgs shapes the argument slice for an image removal.
func (e *BaseCLIEngine) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	return append(args, image)
}

// buildImage runs an image build with output streamed to opts.Output and
// stderr captured for diagnostics. Shared by both engines; engineName is
// only used in the returned error.
func (e *BaseCLIEngine) buildImage(ctx context.Context, engineName string, opts ImageBuildOptions) error {
	cmd := e.CreateCommand(ctx, e.BuildImageArgs(opts)...)

	var stderr bytes.Buffer
	if opts.Output != nil {
		cmd.Stdout = opts.Output
		cmd.Stderr = io.MultiWriter(opts.Output, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		exitCode := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &BuildError{
			Engine:     engineName,
			Dockerfile: opts.Dockerfile,
			Tag:        opts.Tag,
			ExitCode:   exitCode,
			Stderr:     stderr.String(),
			Cause:      err,
		}
	}
	return nil
}
