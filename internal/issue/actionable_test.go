// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("write module stub").
		WithResource("src/player.rs").
		Wrap(cause).
		Build()

	want := "failed to write module stub: src/player.rs: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestActionableErrorFormatVerbose(t *testing.T) {
	t.Parallel()

	inner := errors.New("disk full")
	outer := WrapWithOperation(inner, "copy artifact")

	err := NewErrorContext().
		WithOperation("build library").
		WithSuggestion("Free up disk space and re-run the build").
		Wrap(outer).
		Build()

	formatted := err.Format(true)
	for _, want := range []string{"Error chain:", "disk full", "• Free up disk space"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, formatted)
		}
	}

	terse := err.Format(false)
	if strings.Contains(terse, "Error chain:") {
		t.Errorf("Format(false) should not include the error chain:\n%s", terse)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	t.Parallel()

	if err := WrapWithOperation(nil, "anything"); err != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", err)
	}
	if err := WrapWithContext(nil, "anything", "res"); err != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", err)
	}
}

func TestLookupKnownIssues(t *testing.T) {
	t.Parallel()

	for _, id := range []Id{
		ManifestNotFoundId,
		ManifestCorruptId,
		ContainerEngineNotFoundId,
		UnsupportedPlatformId,
		CompilerNotFoundId,
	} {
		if Lookup(id) == nil {
			t.Errorf("Lookup(%d) = nil, want guidance", id)
		}
	}
	if Lookup(Id(999)) != nil {
		t.Error("Lookup of unknown id should return nil")
	}
}

func TestIssueRender(t *testing.T) {
	t.Parallel()

	orig := render
	defer func() { render = orig }()
	render = func(in string) (string, error) { return in, nil }

	out, err := unsupportedPlatformIssue.Render()
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "x86_64-pc-windows-gnu") {
		t.Errorf("rendered guidance missing target triple:\n%s", out)
	}
}
