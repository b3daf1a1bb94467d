package azure

import (
	"errors"
	"fmt"
)

// ErrorMarker prefixes every failed result once it is rendered as text.
// Callers of the tool tell success from failure only by this prefix.
const ErrorMarker = "Error: "

// Result is the outcome of one command. Err is nil on success.
type Result struct {
	Output string
	Err    error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// String renders the result for the tool boundary. A non-zero exit renders
// the buffered output; every other failure renders the error message.
func (r Result) String() string {
	if r.Err == nil {
		return r.Output
	}
	var exitErr *ExitError
	if errors.As(r.Err, &exitErr) {
		return ErrorMarker + exitErr.Output
	}
	return ErrorMarker + r.Err.Error()
}

func success(output string) Result { return Result{Output: output} }

func failure(err error) Result { return Result{Err: err} }

// ValidationError rejects a command before anything is spawned.
type ValidationError struct {
	Command string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid command. Command must start with '%s'.", Program)
}

// SpawnError means the subprocess could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// StreamError means reading output or waiting for exit failed.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// ExitError carries the buffered output of a process that exited non-zero.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", Program, e.Code)
}

// NoPromptError means a login process ended without printing a device code.
type NoPromptError struct {
	Output string
}

func (e *NoPromptError) Error() string {
	return "Unable to extract login URL and code. Output: " + e.Output
}

// ErrSuperseded is recorded for a login replaced by a newer one.
var ErrSuperseded = errors.New("login superseded by a newer attempt")
