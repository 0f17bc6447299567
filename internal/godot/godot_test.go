// SPDX-License-Identifier: MPL-2.0

package godot

import (
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestDescriptorDir(t *testing.T) {
	t.Parallel()

	if got := DescriptorDir("directed", false); got != "gdnative" {
		t.Errorf("DescriptorDir(standard) = %q", got)
	}
	if got := DescriptorDir("directed", true); got != "addons/directed/gdnative" {
		t.Errorf("DescriptorDir(plugin) = %q", got)
	}
}

func TestBinDir(t *testing.T) {
	t.Parallel()

	if got := BinDir("directed", false, "linux"); got != "gdnative/bin/linux" {
		t.Errorf("BinDir(standard) = %q", got)
	}
	if got := BinDir("directed", true, "windows"); got != "addons/directed/gdnative/bin/windows" {
		t.Errorf("BinDir(plugin) = %q", got)
	}
}

func TestNewGdnlibEntries(t *testing.T) {
	t.Parallel()

	g := NewGdnlib("directed", false)

	want := map[string]string{
		"Windows.64": "res://gdnative/bin/windows/directed.dll",
		"OSX.64":     "res://gdnative/bin/macos/libdirected.dylib",
		"X11.64":     "res://gdnative/bin/linux/libdirected.so",
	}
	for feature, path := range want {
		if g.Entry[feature] != path {
			t.Errorf("Entry[%s] = %q, want %q", feature, g.Entry[feature], path)
		}
	}
	if len(g.Entry) != len(g.Dependencies) {
		t.Errorf("entry and dependency tables should cover the same targets")
	}
}

func TestNewGdnlibPluginPaths(t *testing.T) {
	t.Parallel()

	g := NewGdnlib("directed", true)

	if got := g.Entry["X11.64"]; got != "res://addons/directed/gdnative/bin/linux/libdirected.so" {
		t.Errorf("plugin Entry[X11.64] = %q", got)
	}
}

func TestGdnlibEncode(t *testing.T) {
	t.Parallel()

	out, err := NewGdnlib("directed", false).Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for _, want := range []string{
		"[general]",
		"[entry]",
		"[dependencies]",
		`symbol_prefix = "godot_"`,
		"load_once = true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Encode() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "'") {
		t.Errorf("Encode() should use double-quoted strings, got:\n%s", out)
	}
}

func TestGdnsContent(t *testing.T) {
	t.Parallel()

	out := GdnsContent("MainScene", GdnlibResourcePath("directed", false))

	for _, want := range []string{
		`[ext_resource path="res://gdnative/directed.gdnlib" type="GDNativeLibrary" id=1]`,
		`resource_name = "MainScene"`,
		`class_name = "MainScene"`,
		"library = ExtResource( 1 )",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("GdnsContent() missing %q in:\n%s", want, out)
		}
	}
}

func TestPluginConfigEncode(t *testing.T) {
	t.Parallel()

	out, err := NewPluginConfig("Directed", "directed.gdns").Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for _, want := range []string{
		"[plugin]",
		`name = "Directed"`,
		`version = "1.0"`,
		`script = "directed.gdns"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Encode() missing %q in:\n%s", want, out)
		}
	}
}

func TestPluginConfigEncodePreservesApostrophes(t *testing.T) {
	t.Parallel()

	out, err := NewPluginConfig("O'Brien Tools", "o_brien_tools.gdns").Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var decoded PluginConfig
	if err := toml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("encoded plugin.cfg unparsable: %v\n%s", err, out)
	}
	if decoded.Plugin.Name != "O'Brien Tools" {
		t.Errorf("name = %q after round trip, want apostrophe preserved", decoded.Plugin.Name)
	}
}
