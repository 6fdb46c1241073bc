package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes of the kernelmatrix binary.
const (
	ExitSuccess = 0
	ExitFailure = 1 // a trial failed or the executable is missing
	ExitUsage   = 2 // malformed command line or configuration
)

// ExitError carries the process exit code for an error returned from a
// command. Usage is printed after the message when set.
type ExitError struct {
	Code    int
	Message string
	Err     error
	Usage   string
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

func usageError(c *cobra.Command, err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Usage: c.UsageString()}
}

// noArgs rejects positional arguments as a usage error.
func noArgs(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError(c, fmt.Errorf("unexpected argument %q", args[0]))
	}
	return nil
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
