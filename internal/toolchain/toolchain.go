// SPDX-License-Identifier: MPL-2.0

// Package toolchain manages the cross-compilation platforms a library is
// registered for: the per-platform Dockerfile in the library's docker/
// directory, the shared Cross.toml image overrides, the container toolchain
// image itself, and the platform entry in the manifest.
package toolchain

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/robertcorponoi/godot-rust-cli/internal/container"
	"github.com/robertcorponoi/godot-rust-cli/internal/issue"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
)

//go:embed templates/Dockerfile.x86_64-pc-windows-gnu
var templatesFS embed.FS

// supportedPlatforms maps the platforms that can be registered for
// cross-compilation to their toolchain triples. Cross-compiling GDNative
// libraries needs a tested image per platform, so the set grows one vetted
// platform at a time.
var supportedPlatforms = map[string]string{
	"windows": "x86_64-pc-windows-gnu",
}

var (
	// ErrUnsupportedPlatform is returned when a platform has no toolchain.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrDuplicatePlatform is returned when the platform is already
	// registered in the manifest.
	ErrDuplicatePlatform = errors.New("platform already added")

	// ErrPlatformNotFound is returned when removing a platform the manifest
	// does not record.
	ErrPlatformNotFound = errors.New("platform not found")
)

// ImageBuildError reports a failed toolchain image build. The platform
// registration is committed before the image builds, so the caller can retry
// the image alone; the error exists to say exactly that.
type ImageBuildError struct {
	Platform string
	Tag      string
	Cause    error
}

// Error implements the error interface.
func (e *ImageBuildError) Error() string {
	return fmt.Sprintf("toolchain image %s for platform %s failed to build (the platform stays registered; fix the engine and re-run add-platform or build the image manually): %v", e.Tag, e.Platform, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ImageBuildError) Unwrap() error { return e.Cause }

// ImageTag returns the toolchain image name:tag for a platform.
func ImageTag(platform string) string {
	return fmt.Sprintf("godot-rust-cli-platform-%s:v1", strings.ToLower(platform))
}

// TripleFor returns the toolchain triple for a supported platform.
func TripleFor(platform string) (string, error) {
	triple, ok := supportedPlatforms[strings.ToLower(platform)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return triple, nil
}

// SupportedPlatforms returns the registerable platform names.
func SupportedPlatforms() []string {
	out := make([]string, 0, len(supportedPlatforms))
	for name := range supportedPlatforms {
		out = append(out, name)
	}
	return out
}

type (
	// Option configures a Manager.
	Option func(*Manager)

	// Manager adds and removes cross-compilation platforms for one library.
	Manager struct {
		libraryRoot string
		man         *manifest.Manifest
		engine      container.Engine
		logger      *log.Logger
		output      io.Writer
	}
)

// NewManager returns a manager bound to the library rooted at libraryRoot.
func NewManager(libraryRoot string, man *manifest.Manifest, engine container.Engine, opts ...Option) *Manager {
	m := &Manager{
		libraryRoot: libraryRoot,
		man:         man,
		engine:      engine,
		logger:      log.New(io.Discard),
		output:      io.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithOutput sets the writer the image build streams to.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.output = w }
}

// Add registers a platform: Dockerfile, Cross.toml entry, manifest entry,
// then the toolchain image. Registration commits before the image build, so
// an engine failure surfaces as ImageBuildError while the platform stays
// registered and retryable.
func (m *Manager) Add(ctx context.Context, platform string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))

	triple, err := TripleFor(platform)
	if err != nil {
		return err
	}
	if m.man.PlatformByName(platform) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePlatform, platform)
	}

	m.logger.Info("adding platform", "platform", platform, "triple", triple)

	dockerfileRel := filepath.ToSlash(filepath.Join("docker", "Dockerfile."+triple))
	if err := m.writeDockerfile(dockerfileRel, triple); err != nil {
		return err
	}

	cross, err := LoadCross(m.libraryRoot)
	if err != nil {
		return err
	}
	cross.SetImage(triple, ImageTag(platform))
	if err := SaveCross(cross, m.libraryRoot); err != nil {
		return err
	}

	m.man.Platforms = append(m.man.Platforms, manifest.Platform{
		Name:           platform,
		DockerfilePath: dockerfileRel,
	})
	if err := manifest.Save(m.man, m.libraryRoot); err != nil {
		return err
	}

	m.logger.Info("building toolchain image", "tag", ImageTag(platform), "engine", m.engine.Name())
	buildErr := m.engine.BuildImage(ctx, container.ImageBuildOptions{
		ContextDir: m.libraryRoot,
		Dockerfile: filepath.Join(m.libraryRoot, filepath.FromSlash(dockerfileRel)),
		Tag:        ImageTag(platform),
		Output:     m.output,
	})
	if buildErr != nil {
		return &ImageBuildError{Platform: platform, Tag: ImageTag(platform), Cause: buildErr}
	}

	m.logger.Info("platform added", "platform", platform)
	return nil
}

// Remove unregisters a platform: Dockerfile, Cross.toml entry, toolchain
// image, manifest entry. The image removal is best-effort; a stale local
// image is only disk space.
func (m *Manager) Remove(ctx context.Context, platform string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))

	idx := m.man.PlatformByName(platform)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPlatformNotFound, platform)
	}
	entry := m.man.Platforms[idx]

	m.logger.Info("removing platform", "platform", platform)

	dockerfile := filepath.Join(m.libraryRoot, filepath.FromSlash(entry.DockerfilePath))
	if err := os.Remove(dockerfile); err != nil && !os.IsNotExist(err) {
		return issue.WrapWithContext(err, "remove platform dockerfile", dockerfile)
	}

	cross, err := LoadCross(m.libraryRoot)
	if err != nil {
		return err
	}
	if triple, tripleErr := TripleFor(platform); tripleErr == nil {
		cross.DropImage(triple)
	}
	if err := SaveCross(cross, m.libraryRoot); err != nil {
		return err
	}

	if err := m.engine.RemoveImage(ctx, ImageTag(platform), false); err != nil {
		m.logger.Warn("could not remove toolchain image", "tag", ImageTag(platform), "err", err)
	}

	m.man.Platforms = append(m.man.Platforms[:idx], m.man.Platforms[idx+1:]...)
	if err := manifest.Save(m.man, m.libraryRoot); err != nil {
		return err
	}

	m.logger.Info("platform removed", "platform", platform)
	return nil
}

// writeDockerfile renders the embedded toolchain Dockerfile into the
// library's docker/ directory.
func (m *Manager) writeDockerfile(rel, triple string) error {
	raw, err := templatesFS.ReadFile("templates/Dockerfile." + triple)
	if err != nil {
		return fmt.Errorf("no toolchain dockerfile for triple %s: %w", triple, err)
	}

	abs := filepath.Join(m.libraryRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return issue.WrapWithContext(err, "create docker directory", filepath.Dir(abs))
	}
	if err := os.WriteFile(abs, raw, 0o644); err != nil {
		return issue.WrapWithContext(err, "write platform dockerfile", abs)
	}
	return nil
}
