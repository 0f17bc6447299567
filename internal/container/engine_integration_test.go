// SPDX-License-Identifier: MPL-2.0

// Integration tests that build and remove a real toolchain-style image.
// They require Docker or Podman and are skipped otherwise.

package container

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// checkTestcontainersAvailable safely checks whether a container provider is
// reachable. The provider lookup can panic on some hosts, so it is guarded.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func TestEngineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := AutoDetectEngine()
	if err != nil {
		t.Skipf("skipping: no container engine available: %v", err)
	}
	if !engine.Available() {
		t.Skip("skipping: container engine not responding")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	version, err := engine.Version(ctx)
	if err != nil || version == "" {
		t.Fatalf("Version() = %q, %v", version, err)
	}

	// A minimal image standing in for a platform toolchain image.
	contextDir := t.TempDir()
	dockerfile := filepath.Join(contextDir, "Dockerfile.test")
	contents := "FROM busybox:latest\nENV TOOLCHAIN=test\n"
	if err := os.WriteFile(dockerfile, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	tag := "godot-rust-cli-test-toolchain:v1"
	var out bytes.Buffer
	err = engine.BuildImage(ctx, ImageBuildOptions{
		ContextDir: contextDir,
		Dockerfile: dockerfile,
		Tag:        tag,
		Output:     &out,
	})
	if err != nil {
		t.Fatalf("BuildImage() error: %v\noutput:\n%s", err, out.String())
	}
	defer func() {
		if err := engine.RemoveImage(context.Background(), tag, true); err != nil {
			t.Logf("cleanup: remove image: %v", err)
		}
	}()

	exists, err := engine.ImageExists(ctx, tag)
	if err != nil {
		t.Fatalf("ImageExists() error: %v", err)
	}
	if !exists {
		t.Fatal("built image not found locally")
	}

	if err := engine.RemoveImage(ctx, tag, false); err != nil {
		t.Fatalf("RemoveImage() error: %v", err)
	}
	exists, err = engine.ImageExists(ctx, tag)
	if err != nil {
		t.Fatalf("ImageExists() after removal error: %v", err)
	}
	if exists {
		t.Error("image still present after removal")
	}

	// A broken Dockerfile must surface diagnostics, not just a status.
	badDockerfile := filepath.Join(contextDir, "Dockerfile.bad")
	if err := os.WriteFile(badDockerfile, []byte("FROM busybox:latest\nRUN /no/such/tool\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = engine.BuildImage(ctx, ImageBuildOptions{
		ContextDir: contextDir,
		Dockerfile: badDockerfile,
		Tag:        "godot-rust-cli-test-toolchain:bad",
	})
	if err == nil {
		engine.RemoveImage(context.Background(), "godot-rust-cli-test-toolchain:bad", true) //nolint:errcheck // cleanup
		t.Fatal("BuildImage() should fail for a broken Dockerfile")
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("error = %v, want build failure diagnostics", err)
	}
}
