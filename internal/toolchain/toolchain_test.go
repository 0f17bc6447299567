// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robertcorponoi/godot-rust-cli/internal/container"
	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
)

// fakeEngine records image operations and fakes their outcome.
type fakeEngine struct {
	builds    []container.ImageBuildOptions
	removed   []string
	buildErr  error
	removeErr error
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Version(context.Context) (string, error) { return "0.0.0", nil }

func (f *fakeEngine) ImageExists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeEngine) BuildImage(_ context.Context, opts container.ImageBuildOptions) error {
	f.builds = append(f.builds, opts)
	return f.buildErr
}

func (f *fakeEngine) RemoveImage(_ context.Context, image string, _ bool) error {
	f.removed = append(f.removed, image)
	return f.removeErr
}

func newTestLibrary(t *testing.T) (*manifest.Manifest, string) {
	t.Helper()

	libraryRoot := t.TempDir()
	man := &manifest.Manifest{
		Name:             "Directed",
		ProjectKind:      manifest.KindStandard,
		GodotProjectPath: filepath.Join("..", "game"),
	}
	if err := manifest.Save(man, libraryRoot); err != nil {
		t.Fatal(err)
	}
	return man, libraryRoot
}

func TestAddPlatform(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{}
	m := NewManager(libraryRoot, man, engine)

	if err := m.Add(context.Background(), "Windows"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	dockerfile := filepath.Join(libraryRoot, "docker", "Dockerfile.x86_64-pc-windows-gnu")
	raw, err := os.ReadFile(dockerfile)
	if err != nil {
		t.Fatalf("dockerfile not written: %v", err)
	}
	if !strings.Contains(string(raw), "FROM rustembedded/cross:x86_64-pc-windows-gnu") {
		t.Errorf("dockerfile missing base image:\n%s", raw)
	}

	cross, err := LoadCross(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	if got := cross.Targets["x86_64-pc-windows-gnu"].Image; got != "godot-rust-cli-platform-windows:v1" {
		t.Errorf("cross image = %q", got)
	}

	persisted, err := manifest.Load(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	idx := persisted.PlatformByName("windows")
	if idx < 0 {
		t.Fatal("platform missing from persisted manifest")
	}
	if got := persisted.Platforms[idx].DockerfilePath; got != "docker/Dockerfile.x86_64-pc-windows-gnu" {
		t.Errorf("DockerfilePath = %q", got)
	}

	if len(engine.builds) != 1 {
		t.Fatalf("BuildImage called %d times, want 1", len(engine.builds))
	}
	if engine.builds[0].Tag != "godot-rust-cli-platform-windows:v1" {
		t.Errorf("image tag = %q", engine.builds[0].Tag)
	}
}

func TestAddUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{}
	m := NewManager(libraryRoot, man, engine)

	err := m.Add(context.Background(), "freebsd")
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("error = %v, want ErrUnsupportedPlatform", err)
	}

	if _, statErr := os.Stat(filepath.Join(libraryRoot, "docker")); !os.IsNotExist(statErr) {
		t.Error("rejected platform still created the docker directory")
	}
	if len(engine.builds) != 0 {
		t.Error("rejected platform still built an image")
	}
	if len(man.Platforms) != 0 {
		t.Error("rejected platform still registered")
	}
}

func TestAddDuplicatePlatform(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{}
	m := NewManager(libraryRoot, man, engine)

	if err := m.Add(context.Background(), "windows"); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(context.Background(), "windows"); !errors.Is(err, ErrDuplicatePlatform) {
		t.Fatalf("error = %v, want ErrDuplicatePlatform", err)
	}
	if len(man.Platforms) != 1 {
		t.Errorf("platforms = %d, want 1", len(man.Platforms))
	}
}

func TestFailedImageBuildKeepsRegistration(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{buildErr: errors.New("daemon not running")}
	m := NewManager(libraryRoot, man, engine)

	err := m.Add(context.Background(), "windows")
	if err == nil {
		t.Fatal("Add() should surface the image build failure")
	}
	var imgErr *ImageBuildError
	if !errors.As(err, &imgErr) {
		t.Fatalf("error type = %T, want *ImageBuildError", err)
	}
	if imgErr.Platform != "windows" {
		t.Errorf("Platform = %q", imgErr.Platform)
	}

	// Everything except the image is committed.
	persisted, loadErr := manifest.Load(libraryRoot)
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if persisted.PlatformByName("windows") < 0 {
		t.Error("failed image build rolled back the platform registration")
	}
	if _, statErr := os.Stat(filepath.Join(libraryRoot, "docker", "Dockerfile.x86_64-pc-windows-gnu")); statErr != nil {
		t.Error("dockerfile missing after failed image build")
	}
	cross, crossErr := LoadCross(libraryRoot)
	if crossErr != nil {
		t.Fatal(crossErr)
	}
	if _, ok := cross.Targets["x86_64-pc-windows-gnu"]; !ok {
		t.Error("cross entry missing after failed image build")
	}
}

func TestRemovePlatform(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{}
	m := NewManager(libraryRoot, man, engine)

	if err := m.Add(context.Background(), "windows"); err != nil {
		t.Fatal(err)
	}

	// Another target entry the user added by hand must survive the removal.
	cross, err := LoadCross(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	cross.SetImage("aarch64-unknown-linux-gnu", "my-custom-image:latest")
	if err := SaveCross(cross, libraryRoot); err != nil {
		t.Fatal(err)
	}

	if err := m.Remove(context.Background(), "windows"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(libraryRoot, "docker", "Dockerfile.x86_64-pc-windows-gnu")); !os.IsNotExist(statErr) {
		t.Error("dockerfile not removed")
	}

	cross, err = LoadCross(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cross.Targets["x86_64-pc-windows-gnu"]; ok {
		t.Error("cross entry not removed")
	}
	if got := cross.Targets["aarch64-unknown-linux-gnu"].Image; got != "my-custom-image:latest" {
		t.Errorf("unrelated cross entry lost, image = %q", got)
	}

	if len(engine.removed) != 1 || engine.removed[0] != "godot-rust-cli-platform-windows:v1" {
		t.Errorf("removed images = %v", engine.removed)
	}

	persisted, err := manifest.Load(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	if persisted.PlatformByName("windows") >= 0 {
		t.Error("platform still in persisted manifest")
	}
}

func TestRemoveUnknownPlatform(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	m := NewManager(libraryRoot, man, &fakeEngine{})

	if err := m.Remove(context.Background(), "windows"); !errors.Is(err, ErrPlatformNotFound) {
		t.Errorf("error = %v, want ErrPlatformNotFound", err)
	}
}

func TestRemoveToleratesImageRemovalFailure(t *testing.T) {
	t.Parallel()

	man, libraryRoot := newTestLibrary(t)
	engine := &fakeEngine{removeErr: errors.New("image in use")}
	m := NewManager(libraryRoot, man, engine)

	if err := m.Add(context.Background(), "windows"); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(context.Background(), "windows"); err != nil {
		t.Fatalf("Remove() should tolerate image removal failure, got: %v", err)
	}
	if len(man.Platforms) != 0 {
		t.Error("platform entry not removed")
	}
}

func TestCrossRoundTrip(t *testing.T) {
	t.Parallel()

	libraryRoot := t.TempDir()

	cfg, err := LoadCross(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	cfg.SetImage("x86_64-pc-windows-gnu", ImageTag("windows"))
	cfg.SetImage("aarch64-linux-android", "android-image:v2")
	if err := SaveCross(cfg, libraryRoot); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(libraryRoot, CrossFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "[target.x86_64-pc-windows-gnu]") {
		t.Errorf("missing target table header:\n%s", raw)
	}
	if strings.Contains(string(raw), "'") {
		t.Errorf("strings should be double-quoted:\n%s", raw)
	}

	loaded, err := LoadCross(libraryRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(loaded.Targets))
	}
	if loaded.Targets["x86_64-pc-windows-gnu"].Image != "godot-rust-cli-platform-windows:v1" {
		t.Errorf("image = %q", loaded.Targets["x86_64-pc-windows-gnu"].Image)
	}
}

func TestImageTag(t *testing.T) {
	t.Parallel()

	if got := ImageTag("Windows"); got != "godot-rust-cli-platform-windows:v1" {
		t.Errorf("ImageTag = %q", got)
	}
}
