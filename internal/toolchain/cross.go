// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CrossFileName is the cross-rs configuration file at the library root. It is
// shared state across platforms: edits for one platform must leave every
// other target entry intact.
const CrossFileName = "Cross.toml"

type (
	// CrossConfig models Cross.toml.
	CrossConfig struct {
		Targets map[string]CrossTargetConfig `toml:"target,omitempty"`
	}

	// CrossTargetConfig is one [target.<triple>] entry.
	CrossTargetConfig struct {
		Image string `toml:"image"`
	}
)

func crossPath(libraryRoot string) string {
	return filepath.Join(libraryRoot, CrossFileName)
}

// LoadCross reads Cross.toml from the library root. A missing file is an
// empty configuration, not an error.
func LoadCross(libraryRoot string) (*CrossConfig, error) {
	raw, err := os.ReadFile(crossPath(libraryRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return &CrossConfig{Targets: map[string]CrossTargetConfig{}}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", CrossFileName, err)
	}

	var cfg CrossConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CrossFileName, err)
	}
	if cfg.Targets == nil {
		cfg.Targets = map[string]CrossTargetConfig{}
	}
	return &cfg, nil
}

// SaveCross writes the configuration back to the library root with
// double-quoted strings, which is what cross documents.
func SaveCross(cfg *CrossConfig, libraryRoot string) error {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", CrossFileName, err)
	}
	if err := os.WriteFile(crossPath(libraryRoot), out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", CrossFileName, err)
	}
	return nil
}

// SetImage points a triple at a toolchain image, creating the file on first
// use and leaving other targets untouched.
func (c *CrossConfig) SetImage(triple, image string) {
	if c.Targets == nil {
		c.Targets = map[string]CrossTargetConfig{}
	}
	c.Targets[triple] = CrossTargetConfig{Image: image}
}

// DropImage removes a triple's entry. Missing entries are a no-op.
func (c *CrossConfig) DropImage(triple string) {
	delete(c.Targets, triple)
}
