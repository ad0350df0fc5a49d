package contract

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitCodePass           = 0 // PASS or WARN
	ExitCodeBlocked        = 1 // an enforcing gate failed
	ExitCodeInfrastructure = 2 // configuration or external dependency error
)

// Sentinel errors matched with errors.Is.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrPolicyUnavailable = errors.New("policy decision point unavailable")
)

// ExitError carries the process exit code an error should produce.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFor maps an error to the process exit code.
// Errors without an explicit code are treated as infrastructure failures.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodePass
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCodeInfrastructure
}

// invalidConfig wraps a validation message with ErrInvalidConfig.
func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
