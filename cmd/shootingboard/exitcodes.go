package main

import "fmt"

// Exit codes for the shootingboard CLI.
const (
	ExitOK          = 0 // Success.
	ExitInvalidArgs = 1 // Invalid arguments, flags or config.
	ExitDataError   = 2 // Results could not be loaded or written.
	ExitRenderError = 3 // One or more charts failed to render.
)

// exitCodeError carries a non-zero exit code through cobra's error handling.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// ExitCode returns the exit code for this error.
func (e *exitCodeError) ExitCode() int { return e.code }

// exitError creates an exitCodeError. If msg is empty, the error message is
// set to a generic description of the exit code.
func exitError(code int, format string, args ...any) *exitCodeError {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		switch code {
		case ExitInvalidArgs:
			msg = "shootingboard: invalid arguments"
		case ExitDataError:
			msg = "shootingboard: could not load results"
		case ExitRenderError:
			msg = "shootingboard: chart rendering failed"
		default:
			msg = "shootingboard: error"
		}
	}
	return &exitCodeError{code: code, msg: msg}
}
