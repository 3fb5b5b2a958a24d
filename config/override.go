package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadOverride decodes a TOML file over base, leaving any field the
// file doesn't mention untouched. This is the --config flag's format:
// independent of (and applied after) the CUE-validated defaults, the
// way a deployment-specific file overrides a package-wide one.
func LoadOverride(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	out := base
	if err := toml.Unmarshal(data, &out); err != nil {
		return base, err
	}
	return out, nil
}
