// SPDX-License-Identifier: MPL-2.0

// Package godot builds the files this tool places inside the consuming Godot
// project: the .gdnlib library descriptor, per-module .gdns script
// descriptors, and the plugin.cfg for plugin libraries.
package godot

import (
	"fmt"
	"path"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Gdnlib models the .gdnlib file that tells Godot where the compiled
	// native library lives for each operating system.
	Gdnlib struct {
		General      GdnlibGeneral       `toml:"general"`
		Entry        map[string]string   `toml:"entry"`
		Dependencies map[string][]string `toml:"dependencies"`
	}

	// GdnlibGeneral is the [general] section of the .gdnlib file.
	GdnlibGeneral struct {
		Singleton    bool   `toml:"singleton"`
		LoadOnce     bool   `toml:"load_once"`
		SymbolPrefix string `toml:"symbol_prefix"`
		Reloadable   bool   `toml:"reloadable"`
	}

	// PluginConfig models the plugin.cfg file Godot requires for editor
	// plugins.
	PluginConfig struct {
		Plugin PluginConfigPlugin `toml:"plugin"`
	}

	// PluginConfigPlugin is the [plugin] section of plugin.cfg.
	PluginConfigPlugin struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Author      string `toml:"author"`
		Version     string `toml:"version"`
		Script      string `toml:"script"`
	}
)

// Godot feature tags for the targets the .gdnlib can point at. Declaring all
// of them up front is harmless: Godot ignores entries for binaries that do
// not exist yet.
const (
	featureMacOS        = "OSX.64"
	featureWindows      = "Windows.64"
	featureLinux        = "X11.64"
	featureAndroidArm64 = "Android.arm64-v8a"
	featureAndroidX64   = "Android.x86_64"
)

// DescriptorDir returns the directory, relative to the Godot project root,
// where module descriptors and the gdnlib live. Plugin libraries keep
// everything under their addons/ subtree.
func DescriptorDir(libStem string, plugin bool) string {
	if plugin {
		return path.Join("addons", libStem, "gdnative")
	}
	return "gdnative"
}

// BinDir returns the directory, relative to the Godot project root, where
// built artifacts for the named platform are copied.
func BinDir(libStem string, plugin bool, platform string) string {
	return path.Join(DescriptorDir(libStem, plugin), "bin", platform)
}

// gdnlibBase is the res:// prefix for artifact paths inside the gdnlib.
func gdnlibBase(libStem string, plugin bool) string {
	if plugin {
		return "res://addons/" + libStem
	}
	return "res:/"
}

// NewGdnlib builds the default library descriptor for a freshly scaffolded
// library, pointing each OS entry at the conventional artifact location.
func NewGdnlib(libStem string, plugin bool) Gdnlib {
	base := gdnlibBase(libStem, plugin)

	entry := map[string]string{
		featureMacOS:        fmt.Sprintf("%s/gdnative/bin/macos/lib%s.dylib", base, libStem),
		featureWindows:      fmt.Sprintf("%s/gdnative/bin/windows/%s.dll", base, libStem),
		featureLinux:        fmt.Sprintf("%s/gdnative/bin/linux/lib%s.so", base, libStem),
		featureAndroidArm64: fmt.Sprintf("%s/gdnative/bin/android/aarch64-linux-android/lib%s.so", base, libStem),
		featureAndroidX64:   fmt.Sprintf("%s/gdnative/bin/android/x86_64-linux-android/lib%s.so", base, libStem),
	}
	deps := map[string][]string{
		featureMacOS:        {},
		featureWindows:      {},
		featureLinux:        {},
		featureAndroidArm64: {},
		featureAndroidX64:   {},
	}

	return Gdnlib{
		General: GdnlibGeneral{
			Singleton:    false,
			LoadOnce:     true,
			SymbolPrefix: "godot_",
			Reloadable:   true,
		},
		Entry:        entry,
		Dependencies: deps,
	}
}

// Encode renders the gdnlib as TOML. Godot expects double-quoted strings,
// which is what the encoder emits.
func (g Gdnlib) Encode() (string, error) {
	out, err := toml.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode gdnlib: %w", err)
	}
	return string(out), nil
}

// GdnlibResourcePath returns the path, relative to the Godot project root and
// without extension, of the library's gdnlib file. It is embedded into each
// module's gdns descriptor as a res:// reference.
func GdnlibResourcePath(libStem string, plugin bool) string {
	return path.Join(DescriptorDir(libStem, plugin), libStem)
}

// GdnsContent returns the contents of a module's .gdns script descriptor.
// gdnlibPath is the extension-less gdnlib path from GdnlibResourcePath.
func GdnsContent(className, gdnlibPath string) string {
	return fmt.Sprintf(`[gd_resource type="NativeScript" load_steps=2 format=2]

[ext_resource path="res://%s.gdnlib" type="GDNativeLibrary" id=1]

[resource]

resource_name = "%s"
class_name = "%s"
library = ExtResource( 1 )
`, gdnlibPath, className, className)
}

// NewPluginConfig builds the plugin.cfg contents for a plugin library. script
// is the gdns file name of the plugin's entry module.
func NewPluginConfig(displayName, script string) PluginConfig {
	return PluginConfig{
		Plugin: PluginConfigPlugin{
			Name:        displayName,
			Description: "",
			Author:      "",
			Version:     "1.0",
			Script:      script,
		},
	}
}

// Encode renders the plugin config as TOML with double-quoted strings.
func (p PluginConfig) Encode() (string, error) {
	out, err := toml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode plugin.cfg: %w", err)
	}
	return string(out), nil
}
