package cli

import (
	"errors"
	"fmt"

	"github.com/yingtu35/parker/internal/capture"
)

const (
	ExitSuccess = 0
	ExitPartial = 1 // some screenshots failed
	ExitFailure = 2 // all failed or critical error
)

// exitError attaches a process exit code to err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an error returned by the command tree to an exit code.
// Errors that carry no code are critical.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}

// outcome turns the run summary into the command's result.
func outcome(s capture.Summary) error {
	switch {
	case s.Total > 0 && s.OK == 0:
		return &exitError{code: ExitFailure, err: fmt.Errorf("all %d screenshots failed", s.Total)}
	case s.OK < s.Total:
		return &exitError{code: ExitPartial, err: fmt.Errorf("%d of %d screenshots failed", s.Failed, s.Total)}
	default:
		return nil
	}
}
