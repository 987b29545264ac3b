// cmd/errors.go

package cmd

import (
	"errors"
	"fmt"
)

// Exit codes
const (
	ExitOK           = 0
	ExitChecksFailed = 1
	ExitSetup        = 2
)

// ErrChecksFailed is returned when the run completed and at least one Fail-graded check failed.
// The summary has already been printed when it is returned.
var ErrChecksFailed = errors.New("one or more security checks failed")

// SetupError means no check could be run: bad arguments, an unusable identity file, or bad settings.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupErrorf(format string, args ...any) error {
	return &SetupError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute to the process exit status.
// Errors raised by cobra itself (unknown flags, too many arguments) count as setup errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrChecksFailed):
		return ExitChecksFailed
	default:
		return ExitSetup
	}
}
