package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // validation failure, breaking schema change
	ExitCommandError = 2 // bad flags, unreadable schema, incoherent query
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// an ExitError map to ExitFailure.
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

// Response is the JSON envelope of every command output.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// formatter writes command results as text or JSON.
type formatter struct {
	json bool
	w    io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *formatter {
	return &formatter{json: opts.Format == "json", w: w}
}

// result writes data. In text mode, text renders it.
func (f *formatter) result(data any, text func(w io.Writer) error) error {
	if f.json {
		return json.NewEncoder(f.w).Encode(Response{Status: "ok", Data: data})
	}
	return text(f.w)
}

// failure writes a failed result and returns err unchanged, so that the
// exit code is kept.
func (f *formatter) failure(data any, err error, text func(w io.Writer) error) error {
	if f.json {
		if werr := json.NewEncoder(f.w).Encode(Response{Status: "error", Data: data, Error: err.Error()}); werr != nil {
			return werr
		}
		return err
	}
	if werr := text(f.w); werr != nil {
		return werr
	}
	return err
}
