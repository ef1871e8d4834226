// Package config loads the interpreter's YAML configuration.
package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"

	"github.com/rcarmo/go-smallsh/pkg/sandbox"
)

//go:embed default/config.yaml
var defaultConfigData []byte

// ConfigurationName is the config file looked up in the home directory.
const ConfigurationName = ".smallsh.yaml"

// Configuration holds the interpreter settings read from YAML.
type Configuration struct {
	Prompt     string `json:"prompt" validate:"required"`
	NullDevice string `json:"null_device" validate:"required"`
	MaxTokens  int    `json:"max_tokens" validate:"gte=1,lte=4096"`

	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`

	Color bool `json:"color"`

	Sandbox Sandbox `json:"sandbox"`
}

// Sandbox restricts redirection targets and cd to an allow-list.
type Sandbox struct {
	AllowedPaths []AllowedPath `json:"allowed_paths" validate:"dive"`
	AllowCwd     bool          `json:"allow_cwd"`
}

// AllowedPath is one allow-list entry.
type AllowedPath struct {
	Path     string `json:"path" validate:"required"`
	ReadOnly bool   `json:"read_only"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// SandboxConfig converts the sandbox section. It returns nil when no path
// restriction is configured.
func (c *Configuration) SandboxConfig() *sandbox.Config {
	if len(c.Sandbox.AllowedPaths) == 0 && !c.Sandbox.AllowCwd {
		return nil
	}
	out := &sandbox.Config{AllowCwd: c.Sandbox.AllowCwd}
	for _, p := range c.Sandbox.AllowedPaths {
		perm := sandbox.PermRead | sandbox.PermWrite
		if p.ReadOnly {
			perm = sandbox.PermRead
		}
		out.AllowedPaths = append(out.AllowedPaths, sandbox.PathRule{Path: p.Path, Permission: perm})
	}
	return out
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
