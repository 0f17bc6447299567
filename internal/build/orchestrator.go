// SPDX-License-Identifier: MPL-2.0

package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/robertcorponoi/godot-rust-cli/internal/godot"
	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/naming"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator builds the library and copies artifacts into the Godot
	// project.
	Orchestrator struct {
		libraryRoot string
		man         *manifest.Manifest
		execCommand ExecCommandFunc
		logger      *log.Logger
		output      io.Writer
	}

	// Options selects what one Build run covers.
	Options struct {
		// Release builds with the release profile.
		Release bool
		// AllPlatforms additionally builds every platform registered in the
		// manifest.
		AllPlatforms bool
	}

	// TargetResult is the outcome of one target's build.
	TargetResult struct {
		Target Target
		Err    error
	}

	// Result aggregates the outcomes of all targets in one Build run.
	Result struct {
		Targets []TargetResult
	}
)

// Failed returns the results of targets that did not build.
func (r *Result) Failed() []TargetResult {
	var out []TargetResult
	for _, t := range r.Targets {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// NewOrchestrator returns an orchestrator for the library rooted at
// libraryRoot.
func NewOrchestrator(libraryRoot string, man *manifest.Manifest, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		libraryRoot: libraryRoot,
		man:         man,
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
		output:      os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithExecCommand overrides the exec function, used by tests to record and
// fake compiler invocations.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(o *Orchestrator) { o.execCommand = fn }
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithOutput sets the writer compiler output streams to.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.output = w }
}

// Build compiles the library for the native target and, when opts
// .AllPlatforms is set, for every registered platform. Every target is
// attempted even after earlier failures; the returned error is non-nil when
// at least one target failed, with per-target detail in the Result.
func (o *Orchestrator) Build(ctx context.Context, opts Options) (*Result, error) {
	targets, err := o.targets(opts.AllPlatforms)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, target := range targets {
		o.logger.Info("building", "platform", target.Platform, "triple", target.Triple)
		buildErr := o.buildTarget(ctx, target, opts.Release)
		if buildErr != nil {
			o.logger.Error("build failed", "platform", target.Platform, "err", buildErr)
		} else {
			o.logger.Info("build complete", "platform", target.Platform)
		}
		result.Targets = append(result.Targets, TargetResult{Target: target, Err: buildErr})
	}

	if failed := result.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = f.Target.Platform
		}
		return result, fmt.Errorf("build failed for %s", strings.Join(names, ", "))
	}
	return result, nil
}

// targets resolves the list of targets for one run: the native platform
// first, then the registered platforms when all is set.
func (o *Orchestrator) targets(all bool) ([]Target, error) {
	native, err := NativeTarget()
	if err != nil {
		return nil, err
	}
	targets := []Target{native}

	if all {
		for _, p := range o.man.Platforms {
			target, err := CrossTarget(p.Name)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
	}
	return targets, nil
}

// buildTarget compiles one target and copies its artifact into the Godot
// project. The copy only happens after a successful compile.
func (o *Orchestrator) buildTarget(ctx context.Context, target Target, release bool) error {
	tool := "cargo"
	if target.Cross {
		tool = "cross"
	}
	args := []string{"build", "--target", target.Triple}
	if release {
		args = append(args, "--release")
	}

	cmd := o.execCommand(ctx, tool, args...)
	cmd.Dir = o.libraryRoot

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(o.output, &captured)
	cmd.Stderr = io.MultiWriter(o.output, &captured)

	if err := cmd.Run(); err != nil {
		exitCode := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ToolError{
			Tool:     tool,
			Args:     args,
			ExitCode: exitCode,
			Output:   captured.String(),
			Cause:    err,
		}
	}

	return o.copyArtifact(target, SelectProfile(release))
}

// copyArtifact places the built dynamic library into the platform's bin
// directory in the Godot project, creating it on demand. Per-platform
// directories keep multi-platform artifacts from colliding.
func (o *Orchestrator) copyArtifact(target Target, profile Profile) error {
	stem, err := o.libStem()
	if err != nil {
		return err
	}

	artifact := filepath.Join(o.libraryRoot, "target", target.Triple, string(profile), ArtifactName(target.Platform, stem))
	raw, err := os.ReadFile(artifact)
	if err != nil {
		return issue.WrapWithContext(err, "read build artifact", artifact)
	}

	godotRoot := o.man.GodotProjectRoot(o.libraryRoot)
	binDir := filepath.Join(godotRoot, filepath.FromSlash(godot.BinDir(stem, o.man.ProjectKind == manifest.KindPlugin, target.Platform)))
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return issue.WrapWithContext(err, "create artifact directory", binDir)
	}

	dest := filepath.Join(binDir, filepath.Base(artifact))
	if err := os.WriteFile(dest, raw, 0o755); err != nil {
		return issue.WrapWithContext(err, "copy build artifact", dest)
	}

	o.logger.Debug("artifact copied", "from", artifact, "to", dest)
	return nil
}

func (o *Orchestrator) libStem() (string, error) {
	n, err := naming.Normalize(o.man.Name)
	if err != nil {
		return "", fmt.Errorf("library name %q is not normalizable: %w", o.man.Name, err)
	}
	return n.FileStem, nil
}
