// pkg/utils/errors.go

package utils

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a remote command produced no output
type ErrorKind string

const (
	// ErrKindConnect covers unreachable hosts and transport setup failures
	ErrKindConnect ErrorKind = "connect"

	// ErrKindAuth means the server rejected the public key
	ErrKindAuth ErrorKind = "auth"

	// ErrKindCommand means the command ran and exited non-zero
	ErrKindCommand ErrorKind = "command"

	// ErrKindTimeout means the per-call timeout expired
	ErrKindTimeout ErrorKind = "timeout"

	// ErrKindCanceled means the run was interrupted
	ErrKindCanceled ErrorKind = "canceled"
)

// ExecError is returned by executors for every failed call.
// Checks treat all kinds the same; the kind is kept for logs.
type ExecError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s error running %q: %v", e.Kind, e.Command, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of an *ExecError anywhere in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return ""
}

// newExecError promotes kind to timeout or canceled when the context explains the failure
func newExecError(ctx context.Context, kind ErrorKind, command string, err error) *ExecError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = ErrKindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		kind = ErrKindCanceled
	}
	return &ExecError{Kind: kind, Command: command, Err: err}
}
