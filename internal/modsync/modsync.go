// SPDX-License-Identifier: MPL-2.0

// Package modsync keeps the three views of a module in step: the stub source
// file in the library, the marker lines in the src/lib.rs aggregator, and the
// gdns descriptor in the Godot project, with the manifest as the record of
// truth.
package modsync

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/robertcorponoi/godot-rust-cli/internal/godot"
	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
	"github.com/robertcorponoi/godot-rust-cli/internal/naming"
)

//go:embed templates/module.rs templates/module_plugin.rs
var templatesFS embed.FS

var (
	// ErrDuplicateModule is returned by Create when the manifest already
	// records a module with the same identifier.
	ErrDuplicateModule = errors.New("module already exists")

	// ErrModuleNotFound is returned by Destroy when the manifest records no
	// module with the given identifier.
	ErrModuleNotFound = errors.New("module not found")
)

// Synchronizer creates and destroys modules for one library. It mutates the
// in-memory manifest and persists it as the final step of each operation, so
// a failure partway through never records a module that was not fully laid
// down.
type Synchronizer struct {
	libraryRoot string
	man         *manifest.Manifest
	logger      *log.Logger
}

// NewSynchronizer returns a synchronizer bound to the library rooted at
// libraryRoot. A nil logger silences progress output.
func NewSynchronizer(libraryRoot string, man *manifest.Manifest, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Synchronizer{libraryRoot: libraryRoot, man: man, logger: logger}
}

func (s *Synchronizer) isPlugin() bool {
	return s.man.ProjectKind == manifest.KindPlugin
}

// libStem is the snake_case stem of the library name, used for plugin paths
// and the gdnlib reference.
func (s *Synchronizer) libStem() (string, error) {
	n, err := naming.Normalize(s.man.Name)
	if err != nil {
		return "", fmt.Errorf("library name %q is not normalizable: %w", s.man.Name, err)
	}
	return n.FileStem, nil
}

func (s *Synchronizer) aggregatorPath() string {
	return filepath.Join(s.libraryRoot, "src", "lib.rs")
}

// Create adds the module named by raw: stub source, aggregator markers, gdns
// descriptor, then the manifest entry. Validation failures happen before any
// file is written.
func (s *Synchronizer) Create(raw string) (manifest.Module, error) {
	name, err := naming.Normalize(raw)
	if err != nil {
		return manifest.Module{}, err
	}
	if s.man.ModuleByIdentifier(name.Identifier) >= 0 {
		return manifest.Module{}, fmt.Errorf("%w: %s", ErrDuplicateModule, name.Identifier)
	}
	libStem, err := s.libStem()
	if err != nil {
		return manifest.Module{}, err
	}

	s.logger.Info("creating module", "module", name.Identifier)

	stubPath := filepath.Join(s.libraryRoot, "src", name.FileStem+".rs")
	if err := s.writeStub(stubPath, name.Identifier); err != nil {
		return manifest.Module{}, err
	}

	if err := s.editAggregator(func(contents string) string {
		return AddModule(contents, name.FileStem, name.Identifier, s.isPlugin())
	}); err != nil {
		return manifest.Module{}, err
	}

	descriptorPath := filepath.ToSlash(filepath.Join(godot.DescriptorDir(libStem, s.isPlugin()), name.FileStem+".gdns"))
	if err := s.writeDescriptor(descriptorPath, name.Identifier, libStem); err != nil {
		return manifest.Module{}, err
	}

	module := manifest.Module{
		DisplayName:    name.Display,
		Identifier:     name.Identifier,
		FileStem:       name.FileStem,
		DescriptorPath: descriptorPath,
	}
	s.man.Modules = append(s.man.Modules, module)
	if err := manifest.Save(s.man, s.libraryRoot); err != nil {
		return manifest.Module{}, err
	}

	s.logger.Info("module created", "module", name.Identifier)
	return module, nil
}

// Destroy removes the module named by raw. The descriptor is deleted at the
// path the manifest records, so a descriptor the user relocated (and updated
// the manifest for) is found where it actually lives. Already-missing files
// are tolerated; the manifest entry always goes away.
func (s *Synchronizer) Destroy(raw string) error {
	name, err := naming.Normalize(raw)
	if err != nil {
		return err
	}
	idx := s.man.ModuleByIdentifier(name.Identifier)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name.Identifier)
	}
	module := s.man.Modules[idx]

	s.logger.Info("destroying module", "module", module.Identifier)

	godotRoot := s.man.GodotProjectRoot(s.libraryRoot)
	descriptor := filepath.Join(godotRoot, filepath.FromSlash(module.DescriptorPath))
	if err := removeIfExists(descriptor); err != nil {
		return issue.WrapWithContext(err, "remove module descriptor", descriptor)
	}

	stub := filepath.Join(s.libraryRoot, "src", module.FileStem+".rs")
	if err := removeIfExists(stub); err != nil {
		return issue.WrapWithContext(err, "remove module source", stub)
	}

	if err := s.editAggregator(func(contents string) string {
		return RemoveModule(contents, module.FileStem, module.Identifier)
	}); err != nil {
		return err
	}

	s.man.Modules = append(s.man.Modules[:idx], s.man.Modules[idx+1:]...)
	if err := manifest.Save(s.man, s.libraryRoot); err != nil {
		return err
	}

	s.logger.Info("module destroyed", "module", module.Identifier)
	return nil
}

// writeStub renders the module source template into the library.
func (s *Synchronizer) writeStub(path, identifier string) error {
	tmpl := "templates/module.rs"
	if s.isPlugin() {
		tmpl = "templates/module_plugin.rs"
	}
	raw, err := templatesFS.ReadFile(tmpl)
	if err != nil {
		return fmt.Errorf("failed to read module template: %w", err)
	}
	contents := strings.ReplaceAll(string(raw), "MODULE_NAME", identifier)

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return issue.WrapWithContext(err, "write module source", path)
	}
	return nil
}

// writeDescriptor writes the gdns file at descriptorPath (relative to the
// Godot project root), creating parent directories as needed.
func (s *Synchronizer) writeDescriptor(descriptorPath, identifier, libStem string) error {
	godotRoot := s.man.GodotProjectRoot(s.libraryRoot)
	abs := filepath.Join(godotRoot, filepath.FromSlash(descriptorPath))

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return issue.WrapWithContext(err, "create descriptor directory", filepath.Dir(abs))
	}

	contents := godot.GdnsContent(identifier, godot.GdnlibResourcePath(libStem, s.isPlugin()))
	if err := os.WriteFile(abs, []byte(contents), 0o644); err != nil {
		return issue.WrapWithContext(err, "write module descriptor", abs)
	}
	return nil
}

// editAggregator applies edit to src/lib.rs in place.
func (s *Synchronizer) editAggregator(edit func(string) string) error {
	path := s.aggregatorPath()
	raw, err := os.ReadFile(path)
	if err != nil {
		return issue.WrapWithContext(err, "read aggregator", path)
	}
	if err := os.WriteFile(path, []byte(edit(string(raw))), 0o644); err != nil {
		return issue.WrapWithContext(err, "write aggregator", path)
	}
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
