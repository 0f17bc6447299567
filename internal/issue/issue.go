// SPDX-License-Identifier: MPL-2.0

package issue

import "github.com/charmbracelet/glamour"

// Id identifies a known failure class with dedicated guidance.
type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestCorruptId
	ContainerEngineNotFoundId
	UnsupportedPlatformId
	CompilerNotFoundId
)

// Issue pairs a known failure class with markdown guidance that is rendered
// to the terminal when the failure is hit.
type Issue struct {
	id    Id
	mdMsg string
}

// Id returns the issue identifier.
func (i *Issue) Id() Id { return i.id }

// Render returns the issue guidance rendered for terminal display.
func (i *Issue) Render() (string, error) {
	return render(i.mdMsg)
}

// render is swappable in tests to avoid terminal detection.
var render = func(in string) (string, error) {
	return glamour.Render(in, "auto")
}

var (
	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No library found here!

This command must be run from a library directory: one that contains a
` + "`godot-rust-cli.json`" + ` manifest.

## Things you can try:
- Change into your library directory and re-run the command
- Create a new library next to your Godot project:
~~~
$ godot-rust-cli new platformer-modules ../platformer
~~~`,
	}

	manifestCorruptIssue = &Issue{
		id: ManifestCorruptId,
		mdMsg: `
# The manifest could not be parsed!

` + "`godot-rust-cli.json`" + ` exists but does not match the expected structure.

## Things you can try:
- Check the file for stray edits (it must stay valid JSON)
- Compare it against a freshly created library's manifest
- Restore it from version control`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Cross-platform builds need a container engine to run the toolchain image.

## Supported container engines:
- **Docker**
- **Podman**

## Things you can try:
- Install Docker or Podman and make sure its daemon is running
- Set your preferred engine in the tool config:
~~~toml
container_engine = "podman"
~~~`,
	}

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# Unsupported platform!

Only 64-bit cross-compilation targets with a registered toolchain image are
supported.

## Currently supported:
- **windows** (x86_64-pc-windows-gnu)

Your native platform never needs to be added; it is always built directly
with cargo.`,
	}

	compilerNotFoundIssue = &Issue{
		id: CompilerNotFoundId,
		mdMsg: `
# Rust toolchain not found!

Building the library shells out to ` + "`cargo`" + ` (and ` + "`cross`" + ` for
cross-platform builds), which could not be located on your PATH.

## Things you can try:
- Install Rust via https://rustup.rs
- For cross-platform builds: ` + "`cargo install cross`" + ``,
	}

	issuesById = map[Id]*Issue{
		ManifestNotFoundId:        manifestNotFoundIssue,
		ManifestCorruptId:         manifestCorruptIssue,
		ContainerEngineNotFoundId: containerEngineNotFoundIssue,
		UnsupportedPlatformId:     unsupportedPlatformIssue,
		CompilerNotFoundId:        compilerNotFoundIssue,
	}
)

// Lookup returns the Issue for the given id, or nil when the id has no
// registered guidance.
func Lookup(id Id) *Issue {
	return issuesById[id]
}
