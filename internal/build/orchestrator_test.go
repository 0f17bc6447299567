// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/robertcorponoi/godot-rust-cli/internal/manifest"
)

type (
	// fakeCompiler records compiler invocations and fakes their outcome via
	// the TestHelperProcess pattern. ExitCodeFor decides per invocation; nil
	// means every invocation succeeds.
	fakeCompiler struct {
		mu          sync.Mutex
		invocations []invocation
		ExitCodeFor func(name string, args []string) int
		Stderr      string
	}

	invocation struct {
		Name string
		Args []string
		Dir  string
	}
)

func (f *fakeCompiler) commandFunc() ExecCommandFunc {
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		code := 0
		if f.ExitCodeFor != nil {
			code = f.ExitCodeFor(name, args)
		}

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.Command(os.Args[0], cs...) //nolint:noctx // test helper
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", code),
			"GO_HELPER_STDERR=" + f.Stderr,
		}

		f.mu.Lock()
		f.invocations = append(f.invocations, invocation{Name: name, Args: args})
		f.mu.Unlock()
		return cmd
	}
}

func (f *fakeCompiler) byTool(tool string) []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []invocation
	for _, inv := range f.invocations {
		if inv.Name == tool {
			out = append(out, inv)
		}
	}
	return out
}

// TestHelperProcess is the subprocess body spawned by fakeCompiler.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if errOut := os.Getenv("GO_HELPER_STDERR"); errOut != "" {
		fmt.Fprint(os.Stderr, errOut)
	}
	code, err := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE"))
	if err != nil {
		code = 0
	}
	os.Exit(code)
}

// newTestLibrary lays out a library with a pre-built artifact for the given
// targets, plus a sibling Godot project.
func newTestLibrary(t *testing.T, profile Profile, targets ...Target) (*manifest.Manifest, string, string) {
	t.Helper()

	tmp := t.TempDir()
	libraryRoot := filepath.Join(tmp, "directed")
	godotRoot := filepath.Join(tmp, "game")
	if err := os.MkdirAll(godotRoot, 0o755); err != nil {
		t.Fatal(err)
	}

	man := &manifest.Manifest{
		Name:             "Directed",
		ProjectKind:      manifest.KindStandard,
		GodotProjectPath: filepath.Join("..", "game"),
	}

	for _, target := range targets {
		dir := filepath.Join(libraryRoot, "target", target.Triple, string(profile))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		name := ArtifactName(target.Platform, "directed")
		if err := os.WriteFile(filepath.Join(dir, name), []byte("binary"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	return man, libraryRoot, godotRoot
}

func TestTripleForPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform string
		want     string
	}{
		{"windows", "x86_64-pc-windows-gnu"},
		{"linux", "x86_64-unknown-linux-gnu"},
		{"macos", "x86_64-apple-darwin"},
		{"android", "x86_64-linux-android"},
		{"android.arm", "aarch64-linux-android"},
		{"Windows", "x86_64-pc-windows-gnu"},
	}
	for _, tt := range tests {
		got, err := TripleForPlatform(tt.platform)
		if err != nil {
			t.Errorf("TripleForPlatform(%q) error: %v", tt.platform, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TripleForPlatform(%q) = %q, want %q", tt.platform, got, tt.want)
		}
	}

	if _, err := TripleForPlatform("freebsd"); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("error = %v, want ErrUnknownPlatform", err)
	}
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform string
		want     string
	}{
		{"windows", "directed.dll"},
		{"macos", "libdirected.dylib"},
		{"linux", "libdirected.so"},
		{"android", "libdirected.so"},
	}
	for _, tt := range tests {
		if got := ArtifactName(tt.platform, "directed"); got != tt.want {
			t.Errorf("ArtifactName(%q) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestBuildNativeCopiesArtifact(t *testing.T) {
	t.Parallel()

	native, err := NativeTarget()
	if err != nil {
		t.Skipf("no native target for this platform: %v", err)
	}

	man, libraryRoot, godotRoot := newTestLibrary(t, ProfileDebug, native)
	compiler := &fakeCompiler{}
	o := NewOrchestrator(libraryRoot, man, WithExecCommand(compiler.commandFunc()))

	result, err := o.Build(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(result.Targets) != 1 || result.Targets[0].Err != nil {
		t.Fatalf("result = %+v", result)
	}

	cargo := compiler.byTool("cargo")
	if len(cargo) != 1 {
		t.Fatalf("cargo invoked %d times, want 1", len(cargo))
	}
	wantArgs := []string{"build", "--target", native.Triple}
	if strings.Join(cargo[0].Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("cargo args = %v, want %v", cargo[0].Args, wantArgs)
	}

	copied := filepath.Join(godotRoot, "gdnative", "bin", native.Platform, ArtifactName(native.Platform, "directed"))
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("artifact not copied to %s: %v", copied, err)
	}
}

func TestBuildReleaseFlagAndProfileDir(t *testing.T) {
	t.Parallel()

	native, err := NativeTarget()
	if err != nil {
		t.Skipf("no native target for this platform: %v", err)
	}

	man, libraryRoot, _ := newTestLibrary(t, ProfileRelease, native)
	compiler := &fakeCompiler{}
	o := NewOrchestrator(libraryRoot, man, WithExecCommand(compiler.commandFunc()))

	if _, err := o.Build(context.Background(), Options{Release: true}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	cargo := compiler.byTool("cargo")
	if len(cargo) != 1 || cargo[0].Args[len(cargo[0].Args)-1] != "--release" {
		t.Errorf("cargo invocation missing --release: %+v", cargo)
	}
}

func TestBuildAllIsolatesPlatformFailures(t *testing.T) {
	t.Parallel()

	native, err := NativeTarget()
	if err != nil {
		t.Skipf("no native target for this platform: %v", err)
	}
	windows, err := CrossTarget("windows")
	if err != nil {
		t.Fatal(err)
	}

	man, libraryRoot, godotRoot := newTestLibrary(t, ProfileDebug, native, windows)
	man.Platforms = []manifest.Platform{{Name: "windows", DockerfilePath: "docker/Dockerfile.x86_64-pc-windows-gnu"}}

	compiler := &fakeCompiler{
		Stderr: "linker not found",
		ExitCodeFor: func(name string, _ []string) int {
			if name == "cross" {
				return 101
			}
			return 0
		},
	}
	o := NewOrchestrator(libraryRoot, man, WithExecCommand(compiler.commandFunc()))

	result, err := o.Build(context.Background(), Options{AllPlatforms: true})
	if err == nil {
		t.Fatal("Build() should report the failed platform")
	}
	if len(result.Targets) != 2 {
		t.Fatalf("targets = %d, want both attempted", len(result.Targets))
	}

	failed := result.Failed()
	if len(failed) != 1 || failed[0].Target.Platform != "windows" {
		t.Fatalf("failed = %+v, want only windows", failed)
	}

	var toolErr *ToolError
	if !errors.As(failed[0].Err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolError", failed[0].Err)
	}
	if toolErr.Tool != "cross" || toolErr.ExitCode != 101 {
		t.Errorf("ToolError = %+v", toolErr)
	}
	if !strings.Contains(toolErr.Output, "linker not found") {
		t.Errorf("Output = %q, want captured diagnostics", toolErr.Output)
	}

	// The native artifact was still copied.
	copied := filepath.Join(godotRoot, "gdnative", "bin", native.Platform, ArtifactName(native.Platform, "directed"))
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("successful target's artifact missing: %v", err)
	}
}

func TestBuildFailureSkipsArtifactCopy(t *testing.T) {
	t.Parallel()

	native, err := NativeTarget()
	if err != nil {
		t.Skipf("no native target for this platform: %v", err)
	}

	man, libraryRoot, godotRoot := newTestLibrary(t, ProfileDebug, native)
	compiler := &fakeCompiler{
		ExitCodeFor: func(string, []string) int { return 1 },
	}
	o := NewOrchestrator(libraryRoot, man, WithExecCommand(compiler.commandFunc()))

	if _, err := o.Build(context.Background(), Options{}); err == nil {
		t.Fatal("Build() should fail")
	}

	copied := filepath.Join(godotRoot, "gdnative", "bin", native.Platform, ArtifactName(native.Platform, "directed"))
	if _, err := os.Stat(copied); !os.IsNotExist(err) {
		t.Error("artifact copied despite failed build")
	}
}

func TestSelectProfile(t *testing.T) {
	t.Parallel()

	if SelectProfile(false) != ProfileDebug || SelectProfile(true) != ProfileRelease {
		t.Error("SelectProfile mapping wrong")
	}
}
