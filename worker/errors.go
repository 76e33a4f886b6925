package worker

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindSpawn           Kind = "SPAWN_ERROR"
	KindNonZeroExit     Kind = "NONZERO_EXIT"
	KindMalformedOutput Kind = "MALFORMED_OUTPUT"
	KindTimeout         Kind = "WORKER_TIMEOUT"
	KindCanceled        Kind = "WORKER_CANCELED"
	KindBusy            Kind = "WORKER_BUSY"
)

// Error describes a failed invocation. Stderr is kept for server-side logs
// and must not be copied into responses.
type Error struct {
	Kind     Kind
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("worker %s: %s", e.Command, e.Kind)
	if e.Kind == KindNonZeroExit {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure class of err, or "" if err is not a worker
// error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
