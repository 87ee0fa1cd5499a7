package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Exit codes reported to the shell.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // an operation ran and failed: unresolved set, checksum mismatch
	ExitCommandError = 2 // the invocation was wrong: bad flags, no manifest, malformed spec
)

// ExitError tags an error chain with the exit code the process should
// report. Commands return one from RunE; main asks GetExitCode.
type ExitError struct {
	Code int
	Msg  string
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError builds an ExitError from a bare message.
func NewExitError(code int, msg string) *ExitError {
	return &ExitError{Code: code, Msg: msg}
}

// WrapExitError attaches an exit code and context to an underlying error.
func WrapExitError(code int, msg string, err error) *ExitError {
	return &ExitError{Code: code, Msg: msg, Err: err}
}

// GetExitCode finds the ExitError in err's chain and returns its code, or
// ExitFailure when the chain carries none.
func GetExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// OutputFormatter handles structured vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// Response is the standard structured response for CLI output.
type Response struct {
	Status string `json:"status" yaml:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *Fault `json:"error,omitempty" yaml:"error,omitempty"`
}

// Fault is the error structure for CLI responses.
type Fault struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Success outputs a successful result in the configured format. In text
// mode the data's String rendering is printed as-is.
func (f *OutputFormatter) Success(data any) error {
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	case "yaml":
		return yaml.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: &Fault{Code: code, Message: message}})
	case "yaml":
		return yaml.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: &Fault{Code: code, Message: message}})
	}
	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", color.RedString("error"), code, message)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, so structured output is never corrupted.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
