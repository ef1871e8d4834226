// Package sandbox restricts which paths the interpreter may open for
// redirection or change into with cd.
// It is disabled by default; every check passes until Init is called.
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Common sandbox errors.
var (
	ErrAccessDenied = errors.New("access denied: path not in sandbox")
	ErrReadOnly     = errors.New("write access denied: sandbox is read-only")
)

// Permission represents file access permissions.
type Permission uint8

const (
	PermNone  Permission = 0
	PermRead  Permission = 1 << iota // open for input redirection, cd
	PermWrite                        // create/truncate for output redirection
)

// PathRule grants a permission on a path and everything below it.
type PathRule struct {
	Path       string
	Permission Permission
}

// Config holds sandbox configuration.
type Config struct {
	AllowedPaths []PathRule
	// AllowCwd adds the working directory at Init time with CwdPermission
	// (read+write when left at PermNone).
	AllowCwd      bool
	CwdPermission Permission
}

type sandbox struct {
	mu      sync.RWMutex
	rules   []PathRule
	enabled bool
}

var global = &sandbox{}

// Init enables the sandbox with the given rules, replacing any earlier ones.
func Init(cfg *Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	global.rules = nil
	global.enabled = true

	if cfg.AllowCwd {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		perm := cfg.CwdPermission
		if perm == PermNone {
			perm = PermRead | PermWrite
		}
		global.rules = append(global.rules, PathRule{Path: cwd, Permission: perm})
	}

	for _, rule := range cfg.AllowedPaths {
		abs, err := filepath.Abs(rule.Path)
		if err != nil {
			continue
		}
		global.rules = append(global.rules, PathRule{Path: filepath.Clean(abs), Permission: rule.Permission})
	}
	return nil
}

// Disable turns all checks off.
func Disable() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = false
	global.rules = nil
}

// IsEnabled returns whether the sandbox is enabled.
func IsEnabled() bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.enabled
}

// Check verifies that path may be accessed with perm.
func Check(path string, perm Permission) error {
	global.mu.RLock()
	defer global.mu.RUnlock()

	if !global.enabled {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return ErrAccessDenied
	}
	abs = filepath.Clean(abs)

	denied := ErrAccessDenied
	for _, rule := range global.rules {
		if !within(abs, rule.Path) {
			continue
		}
		if rule.Permission&perm == perm {
			return nil
		}
		if perm&PermWrite != 0 && rule.Permission&PermWrite == 0 {
			denied = ErrReadOnly
		}
	}
	return denied
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	rest := strings.TrimPrefix(path, root)
	return rest != path && (strings.HasPrefix(rest, string(filepath.Separator)) || root == string(filepath.Separator))
}

// Open opens a file for reading.
func Open(path string) (*os.File, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.Open(path) // #nosec G304 -- Check enforces allowed paths
}

// OpenFile opens a file with the given flags.
func OpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	required := PermRead
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		required = PermWrite
		if flag&os.O_RDWR != 0 {
			required |= PermRead
		}
	}
	if err := Check(path, required); err != nil {
		return nil, err
	}
	return os.OpenFile(path, flag, perm) // #nosec G304 -- Check enforces allowed paths
}

// Chdir changes the working directory.
func Chdir(path string) error {
	if err := Check(path, PermRead); err != nil {
		return err
	}
	return os.Chdir(path)
}
