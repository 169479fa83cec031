package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command completed
	ExitFailure      = 1 // Refused because of tracker state (already logged today, unconfirmed clear)
	ExitCommandError = 2 // Bad input, unreadable file or invalid config
)

// ErrCode classifies a reported failure. It decides the exit code.
type ErrCode string

const (
	ErrCodeGeneric      ErrCode = "E001" // Unexpected failure
	ErrCodeConfig       ErrCode = "E002" // Configuration could not be loaded
	ErrCodeInvalidInput ErrCode = "E003" // Argument or flag value rejected
	ErrCodeConflict     ErrCode = "E004" // Refused because of existing history
	ErrCodeNotFound     ErrCode = "E005" // Import file not found
	ErrCodeIO           ErrCode = "E006" // Reading or writing a file failed
)

// ExitCode returns the process exit code for failures of this class.
func (c ErrCode) ExitCode() int {
	switch c {
	case ErrCodeGeneric, ErrCodeConflict:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command in a CLIResponse.
type CLIError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Details any     `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success writes data, printing it with fmt in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error reports a failure. Text mode prints "injtrack: message (CODE)" and,
// when verbose, the details on a second line.
func (f *OutputFormatter) Error(code ErrCode, message string, details any) error {
	if f.isJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(f.Writer, "injtrack: %s (%s)\n", message, code); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "  cause: %v\n", details)
		return err
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose is set. It never writes
// to Writer in JSON mode unless no ErrWriter is configured.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when it is unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Emit writes data as the JSON payload, or text when the format is text.
func (f *OutputFormatter) Emit(data any, text string) error {
	if f.isJSON() {
		return f.Success(data)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Fail reports a failure and returns the ExitError the command should
// return. The exit code follows from code.
func (f *OutputFormatter) Fail(code ErrCode, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	_ = f.Error(code, message, details)
	return WrapExitError(code.ExitCode(), fmt.Sprintf("%s: %s", code, message), err)
}
