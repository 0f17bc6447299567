// SPDX-License-Identifier: MPL-2.0

// Package scaffold lays down a new library next to an existing Godot
// project: the cargo package, its build configuration, the initial
// aggregator source, the manifest, and the Godot-side gdnative structure.
package scaffold

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
	"github.com/pelletier/go-toml/v2"

	"github.com/robertcorponoi/godot-rust-cli/internal/godot"
	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/modsync"
	"github.com/robertcorponoi/godot-rust-cli/internal/naming"
)

// gdnativeVersion is the gdnative crate version pinned into new libraries.
const gdnativeVersion = "0.9.3"

// initialAggregator is the starting src/lib.rs. The init function and the
// declaration area are the anchors module markers are inserted against.
const initialAggregator = `use gdnative::prelude::*;

fn init(handle: InitHandle) {
}

godot_init!(init);
`

var (
	// ErrLibraryExists is returned when the target library directory is
	// already taken.
	ErrLibraryExists = errors.New("library directory already exists")

	// ErrNotGodotProject is returned when the given project directory has no
	// project.godot file.
	ErrNotGodotProject = errors.New("not a godot project")
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures a Scaffolder.
	Option func(*Scaffolder)

	// Scaffolder creates new libraries.
	Scaffolder struct {
		execCommand ExecCommandFunc
		logger      *log.Logger
	}

	// Options describes the library to create.
	Options struct {
		// Name is the raw library name.
		Name string
		// GodotProjectDir is the path to the Godot project the library is
		// for.
		GodotProjectDir string
		// Plugin scaffolds a plugin library with the addons/ structure and
		// an initial plugin module.
		Plugin bool
	}

	// cargoEnvConfig is the .cargo/config.toml written into the library so
	// builds can locate the Godot project through the environment.
	cargoEnvConfig struct {
		Env map[string]string `toml:"env"`
	}
)

// New returns a Scaffolder.
func New(opts ...Option) *Scaffolder {
	s := &Scaffolder{
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithExecCommand overrides the exec function, used by tests to fake the
// cargo invocation.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(s *Scaffolder) { s.execCommand = fn }
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scaffolder) { s.logger = logger }
}

// Create scaffolds the library under parentDir and returns its root
// directory. Validation happens before anything touches the filesystem.
func (s *Scaffolder) Create(ctx context.Context, parentDir string, opts Options) (string, error) {
	name, err := naming.Normalize(opts.Name)
	if err != nil {
		return "", err
	}
	libStem := name.FileStem

	libraryRoot := filepath.Join(parentDir, libStem)
	if _, err := os.Stat(libraryRoot); err == nil {
		return "", fmt.Errorf("%w: %s", ErrLibraryExists, libraryRoot)
	}

	godotRoot, err := filepath.Abs(opts.GodotProjectDir)
	if err != nil {
		return "", fmt.Errorf("resolve godot project dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(godotRoot, "project.godot")); err != nil {
		return "", fmt.Errorf("%w: no project.godot in %s", ErrNotGodotProject, godotRoot)
	}

	s.logger.Info("creating library", "name", name.Display, "path", libraryRoot)

	if err := s.runCargoNew(ctx, parentDir, libStem); err != nil {
		return "", err
	}
	if err := s.writeCargoEnv(libraryRoot, godotRoot); err != nil {
		return "", err
	}
	if err := rewriteCargoManifest(libraryRoot); err != nil {
		return "", err
	}

	aggregator := filepath.Join(libraryRoot, "src", "lib.rs")
	if err := os.WriteFile(aggregator, []byte(initialAggregator), 0o644); err != nil {
		return "", issue.WrapWithContext(err, "write initial aggregator", aggregator)
	}

	man, err := s.writeManifest(libraryRoot, godotRoot, name, opts.Plugin)
	if err != nil {
		return "", err
	}

	if err := writeGdnlib(godotRoot, libStem, opts.Plugin); err != nil {
		return "", err
	}

	if opts.Plugin {
		if err := s.scaffoldPlugin(libraryRoot, godotRoot, man, name); err != nil {
			return "", err
		}
	}

	s.logger.Info("library created", "path", libraryRoot)
	return libraryRoot, nil
}

// runCargoNew creates the cargo package for the library.
func (s *Scaffolder) runCargoNew(ctx context.Context, parentDir, libStem string) error {
	args := []string{"new", libStem, "--lib"}
	cmd := s.execCommand(ctx, "cargo", args...)
	cmd.Dir = parentDir

	var captured bytes.Buffer
	cmd.Stdout = &captured
	cmd.Stderr = &captured

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(captured.String())
		if msg != "" {
			return fmt.Errorf("cargo new failed: %s: %w", msg, err)
		}
		return fmt.Errorf("cargo new failed: %w", err)
	}
	return nil
}

// writeCargoEnv writes .cargo/config.toml so builds see the Godot project
// path in their environment.
func (s *Scaffolder) writeCargoEnv(libraryRoot, godotRoot string) error {
	cfg := cargoEnvConfig{
		Env: map[string]string{"GODOT_RUST_CLI_PROJECT_PATH": godotRoot},
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode cargo env config: %w", err)
	}

	dir := filepath.Join(libraryRoot, ".cargo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return issue.WrapWithContext(err, "create .cargo directory", dir)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return issue.WrapWithContext(err, "write cargo env config", path)
	}
	return nil
}

// rewriteCargoManifest edits the generated Cargo.toml in place: the library
// must build as a cdylib and depend on the gdnative crate. The edit goes
// through a generic document so fields cargo adds in future versions
// survive.
func rewriteCargoManifest(libraryRoot string) error {
	path := filepath.Join(libraryRoot, "Cargo.toml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return issue.WrapWithContext(err, "read Cargo.toml", path)
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	doc["lib"] = map[string]any{"crate-type": []string{"cdylib"}}

	deps, _ := doc["dependencies"].(map[string]any)
	if deps == nil {
		deps = map[string]any{}
	}
	deps["gdnative"] = gdnativeVersion
	doc["dependencies"] = deps

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return issue.WrapWithContext(err, "write Cargo.toml", path)
	}
	return nil
}

// writeManifest records the new library. The Godot project path is stored
// relative to the library when possible so the pair of directories can move
// together.
func (s *Scaffolder) writeManifest(libraryRoot, godotRoot string, name naming.Name, plugin bool) (*manifest.Manifest, error) {
	projectPath := godotRoot
	if rel, err := filepath.Rel(libraryRoot, godotRoot); err == nil {
		projectPath = rel
	}

	kind := manifest.KindStandard
	if plugin {
		kind = manifest.KindPlugin
	}

	// Empty slices rather than nil so the manifest serializes [] for a
	// fresh library instead of null.
	man := &manifest.Manifest{
		Name:             name.Display,
		ProjectKind:      kind,
		GodotProjectPath: filepath.ToSlash(projectPath),
		Modules:          []manifest.Module{},
		Platforms:        []manifest.Platform{},
	}
	if err := man.ValidateProjectPath(libraryRoot); err != nil {
		return nil, err
	}
	if err := manifest.Save(man, libraryRoot); err != nil {
		return nil, err
	}
	return man, nil
}

// writeGdnlib creates the library descriptor in the Godot project.
func writeGdnlib(godotRoot, libStem string, plugin bool) error {
	contents, err := godot.NewGdnlib(libStem, plugin).Encode()
	if err != nil {
		return err
	}

	dir := filepath.Join(godotRoot, filepath.FromSlash(godot.DescriptorDir(libStem, plugin)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return issue.WrapWithContext(err, "create gdnative directory", dir)
	}
	path := filepath.Join(dir, libStem+".gdnlib")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return issue.WrapWithContext(err, "write gdnlib", path)
	}
	return nil
}

// scaffoldPlugin creates the plugin.cfg and the plugin's entry module. Godot
// requires every editor plugin to carry a config naming its script.
func (s *Scaffolder) scaffoldPlugin(libraryRoot, godotRoot string, man *manifest.Manifest, name naming.Name) error {
	pluginDir := filepath.Join(godotRoot, "addons", name.FileStem)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return issue.WrapWithContext(err, "create plugin directory", pluginDir)
	}

	sync := modsync.NewSynchronizer(libraryRoot, man, s.logger)
	if _, err := sync.Create(name.Display); err != nil {
		return err
	}

	cfg, err := godot.NewPluginConfig(name.Display, name.FileStem+".gdns").Encode()
	if err != nil {
		return err
	}
	path := filepath.Join(pluginDir, "plugin.cfg")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		return issue.WrapWithContext(err, "write plugin.cfg", path)
	}
	return nil
}
