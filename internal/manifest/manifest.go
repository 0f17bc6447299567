// SPDX-License-Identifier: MPL-2.0

// Package manifest defines the persisted project manifest and its load/save
// round-trip. The manifest file is the detection signal for a library root:
// commands run outside a directory containing one must abort before any
// mutation.
//
// The manifest is the single source of truth for module and platform state.
// In particular, a module's descriptor path is always read from the manifest
// rather than recomputed from naming conventions, so descriptors relocated by
// the user keep working.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest file name at the library root. Its presence is
// what makes a directory a library root.
const FileName = "godot-rust-cli.json"

// Kind discriminates the two library flavors. It is set once by the new
// operation and never changes afterwards.
type Kind string

const (
	// KindStandard is a plain component library: descriptors and binaries
	// live under the Godot project's gdnative directory.
	KindStandard Kind = "standard-library"
	// KindPlugin is a plugin library: everything the library generates lives
	// under the plugin's addons subtree in the Godot project.
	KindPlugin Kind = "plugin-library"
)

var (
	// ErrNotFound is returned by Load when no manifest file exists at the
	// given root, i.e. the directory is not a library root.
	ErrNotFound = errors.New("manifest not found")

	// ErrCorrupt is returned by Load when the manifest file exists but does
	// not parse into the typed model.
	ErrCorrupt = errors.New("manifest corrupt")

	// ErrInvalidProjectPath is returned when the Godot project path does not
	// resolve to a valid sibling directory of the library root.
	ErrInvalidProjectPath = errors.New("invalid godot project path")
)

type (
	// Manifest is the persisted root record for a library. Field order is
	// load-bearing: encoding/json serializes struct fields in declaration
	// order, and external diffs rely on it staying stable.
	Manifest struct {
		// Name is the library name as supplied to the new command.
		Name string `json:"name"`
		// ProjectKind discriminates standard and plugin libraries.
		ProjectKind Kind `json:"project_kind"`
		// GodotProjectPath is the path from the library root to the Godot
		// project root, normally "../<project>".
		GodotProjectPath string `json:"godot_project_path"`
		// Modules are the live modules, ordered by creation, unique by
		// identifier.
		Modules []Module `json:"modules"`
		// Platforms are the registered cross-compilation targets, unique by
		// name.
		Platforms []Platform `json:"platforms"`
	}

	// Module is one compiled unit tracked by the manifest.
	Module struct {
		// DisplayName is the name exactly as the user supplied it.
		DisplayName string `json:"display_name"`
		// Identifier is the PascalCase form, the unique key.
		Identifier string `json:"identifier"`
		// FileStem is the snake_case form used for file names.
		FileStem string `json:"file_stem"`
		// DescriptorPath locates the module's .gdns file relative to the
		// Godot project root. The user may move the descriptor after
		// creation; this recorded path is then the only valid reference.
		DescriptorPath string `json:"descriptor_path"`
	}

	// Platform is a registered cross-compilation target.
	Platform struct {
		// Name is the platform name from the fixed supported set.
		Name string `json:"name"`
		// DockerfilePath locates the platform's toolchain image definition
		// relative to the library root.
		DockerfilePath string `json:"dockerfile_path"`
	}
)

// Load reads the manifest from libraryRoot. It fails with ErrNotFound when
// the manifest file is absent and ErrCorrupt when the stored structure does
// not parse. Callers are expected to abort the whole command on either.
func Load(libraryRoot string) (*Manifest, error) {
	path := filepath.Join(libraryRoot, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if m.ProjectKind != KindStandard && m.ProjectKind != KindPlugin {
		return nil, fmt.Errorf("%w: %s: unknown project_kind %q", ErrCorrupt, path, m.ProjectKind)
	}

	return &m, nil
}

// Save writes the manifest to libraryRoot, pretty-printed so external diffs
// stay readable. Modules and platforms keep their in-memory order.
func Save(m *Manifest, libraryRoot string) error {
	path := filepath.Join(libraryRoot, FileName)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// Exists reports whether libraryRoot contains a manifest file.
func Exists(libraryRoot string) bool {
	_, err := os.Stat(filepath.Join(libraryRoot, FileName))
	return err == nil
}

// ModuleByIdentifier returns the index of the module with the given
// identifier, or -1 when absent.
func (m *Manifest) ModuleByIdentifier(identifier string) int {
	for i, mod := range m.Modules {
		if mod.Identifier == identifier {
			return i
		}
	}
	return -1
}

// PlatformByName returns the index of the platform with the given name, or
// -1 when absent.
func (m *Manifest) PlatformByName(name string) int {
	for i, p := range m.Platforms {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// GodotProjectRoot resolves the Godot project directory against the library
// root. The result is cleaned but not required to exist; validation is a
// separate step.
func (m *Manifest) GodotProjectRoot(libraryRoot string) string {
	if filepath.IsAbs(m.GodotProjectPath) {
		return filepath.Clean(m.GodotProjectPath)
	}
	return filepath.Clean(filepath.Join(libraryRoot, m.GodotProjectPath))
}

// ValidateProjectPath checks the invariant on the library/Godot-project
// relationship: the resolved project root must exist, must not live inside
// the library tree, and must not contain the library tree. Violations wrap
// ErrInvalidProjectPath and abort before any filesystem write.
func (m *Manifest) ValidateProjectPath(libraryRoot string) error {
	libAbs, err := filepath.Abs(libraryRoot)
	if err != nil {
		return fmt.Errorf("resolve library root: %w", err)
	}
	projAbs, err := filepath.Abs(m.GodotProjectRoot(libraryRoot))
	if err != nil {
		return fmt.Errorf("resolve godot project root: %w", err)
	}

	info, err := os.Stat(projAbs)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not an existing directory", ErrInvalidProjectPath, projAbs)
	}

	if isWithin(libAbs, projAbs) {
		return fmt.Errorf("%w: %s is inside the library tree", ErrInvalidProjectPath, projAbs)
	}
	if isWithin(projAbs, libAbs) {
		return fmt.Errorf("%w: %s contains the library tree", ErrInvalidProjectPath, projAbs)
	}
	return nil
}

// isWithin reports whether child is parent or a descendant of parent. Both
// paths must be absolute and cleaned.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
