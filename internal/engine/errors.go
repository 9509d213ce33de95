package engine

import (
	"errors"
	"fmt"
)

// Fatal marks an error as state-threatening: the run must abort instead of
// continuing to perform unrecorded actions. Storage failures are the main
// source; per-prospect action failures are never fatal.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err is wrapped with Fatal.
func IsFatal(err error) bool {
	var e fatalError
	return errors.As(err, &e)
}

type fatalError struct{ err error }

func (e fatalError) Error() string { return fmt.Sprintf("fatal: %v", e.err) }
func (e fatalError) Unwrap() error { return e.err }
