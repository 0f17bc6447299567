// SPDX-License-Identifier: MPL-2.0

// Package container abstracts the container engines (Docker/Podman) used to
// build and remove per-platform cross-compilation toolchain images. Engines
// are driven through their CLIs as opaque subprocesses; this package only
// shapes arguments and surfaces captured diagnostics on failure.
package container

import (
	"context"
	"fmt"
	"io"
)

// Engine is the image-lifecycle interface needed by the toolchain manager.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available reports whether the engine is installed and responding.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)
	// BuildImage builds a toolchain image from a Dockerfile.
	BuildImage(ctx context.Context, opts ImageBuildOptions) error
	// ImageExists reports whether an image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
	// RemoveImage removes a local image.
	RemoveImage(ctx context.Context, image string, force bool) error
}

// ImageBuildOptions contains options for building a toolchain image.
type ImageBuildOptions struct {
	// ContextDir is the build context directory, normally the library root.
	ContextDir string
	// Dockerfile is the path to the Dockerfile, relative to ContextDir or
	// absolute.
	Dockerfile string
	// Tag is the image name:tag.
	Tag string
	// Output receives the streamed build output. nil discards it.
	Output io.Writer
}

// EngineType identifies the container engine type.
type EngineType string

const (
	// EngineTypeDocker selects the Docker CLI engine.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman selects the Podman CLI engine.
	EngineTypePodman EngineType = "podman"
	// EngineTypeAuto selects whichever engine is available, Docker first.
	EngineTypeAuto EngineType = "auto"
)

// ErrEngineNotAvailable is returned when no usable container engine exists.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

// Error implements the error interface.
func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a container engine based on preference, falling back to
// the other engine when the preferred one is not available.
func NewEngine(preferred EngineType) (Engine, error) {
	switch preferred {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		docker := NewDockerEngine()
		if docker.Available() {
			return docker, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: string(EngineTypePodman),
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		podman := NewPodmanEngine()
		if podman.Available() {
			return podman, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: string(EngineTypeDocker),
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	case EngineTypeAuto:
		return AutoDetectEngine()

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}
}

// AutoDetectEngine finds an available container engine, Docker first since
// cross defaults to it.
func AutoDetectEngine() (Engine, error) {
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}
	return nil, &ErrEngineNotAvailable{
		Engine: string(EngineTypeAuto),
		Reason: "neither docker nor podman is installed and responding",
	}
}
