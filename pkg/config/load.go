package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultPath is $HOME/.smallsh.yaml, or empty when there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ConfigurationName)
}

// Load reads the configuration at path on fsys, layered over the defaults.
// A missing file yields the defaults.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	out := Default()
	if path == "" {
		return out, nil
	}

	contents, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(contents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
