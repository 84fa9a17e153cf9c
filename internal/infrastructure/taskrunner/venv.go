package taskrunner

import (
	"fmt"
	"os"
	"strings"
)

// DefaultVenvVar is set by virtualenv's activate script
const DefaultVenvVar = "VIRTUAL_ENV"

// LookupFunc reads an environment variable
type LookupFunc func(key string) (string, bool)

// RequireVirtualEnv returns an error wrapping ErrNoVirtualEnv, naming
// varName, unless varName is set to a non-blank value. A nil lookup reads
// the process environment.
func RequireVirtualEnv(varName string, lookup LookupFunc) error {
	if varName == "" {
		varName = DefaultVenvVar
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(varName); !ok || strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: set %s (activate a virtualenv) before building", ErrNoVirtualEnv, varName)
	}
	return nil
}

// VirtualEnvDir returns the active virtualenv directory, if any
func VirtualEnvDir(varName string, lookup LookupFunc) string {
	if varName == "" {
		varName = DefaultVenvVar
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(varName)
	return strings.TrimSpace(v)
}
