package models

import (
	"fmt"
	"strings"
)

// Environment identifies the target deployment this tool is pointed at.
// It is passed explicitly into constructors rather than read from ambient
// globals so tests can substitute it.
type Environment struct {
	Name string
}

// IsProduction reports whether the environment name looks like a
// production deployment. Matching is deliberately broad: any name we are
// not sure about is treated as production and refused.
func (e Environment) IsProduction() bool {
	name := strings.ToLower(strings.TrimSpace(e.Name))
	switch name {
	case "staging", "uat", "dev", "development", "test", "local", "sandbox":
		return false
	default:
		return true
	}
}

// ValidationError reports malformed or ambiguous user input. It is
// surfaced immediately, before any query or mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// EnvironmentGuardError reports that the target environment is not a
// recognized non-production deployment. It is fatal and aborts the run
// before any query.
type EnvironmentGuardError struct {
	Environment string
}

func (e *EnvironmentGuardError) Error() string {
	return fmt.Sprintf("environment %q is not a recognized non-production environment; refusing to run", e.Environment)
}
