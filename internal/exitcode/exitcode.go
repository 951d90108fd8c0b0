package exitcode

import "errors"

// Exit codes for llm-playground commands
const (
	Success            = 0
	Error              = 1
	Usage              = 2
	BackendUnavailable = 3
	BackendError       = 4
	Cancelled          = 130 // 128 + SIGINT
)

// ExitError is an error that carries a specific exit code
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	return e.Message
}

// Convenience constructors
func Unavailable(msg string) ExitError { return ExitError{Code: BackendUnavailable, Message: msg} }
func Backend(msg string) ExitError     { return ExitError{Code: BackendError, Message: msg} }
func BadUsage(msg string) ExitError    { return ExitError{Code: Usage, Message: msg} }
func Cancel() ExitError                { return ExitError{Code: Cancelled, Message: "cancelled"} }

// Code returns the exit code for err: Success for nil, the carried code for
// an ExitError anywhere in the chain, Error otherwise.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return Error
}
