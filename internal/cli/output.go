package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Data failure (schema violations, failed imports)
	ExitCommandError = 2 // Command error (bad flags, missing files, bad config)
)

// Error codes shown in CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Configuration error
	ErrCodeNotFound    = "E005" // Input not found
	ErrCodeReadFailed  = "E006" // Input could not be parsed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeMapping     = "E101" // Mapping file invalid
	ErrCodeTransform   = "E102" // Transform failed
	ErrCodeCondition   = "E103" // Condition could not be parsed or evaluated
	ErrCodeSchema      = "E200" // Schema validation failed
	ErrCodeFusion      = "E301" // Fusion failed
	ErrCodeStore       = "E401" // Store operation failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// JSON reports whether the formatter emits JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err under code and returns the matching ExitError. Hints
// attached with errors.WithHint are shown in verbose text mode.
func (f *OutputFormatter) Fail(exit int, code string, err error) error {
	_ = f.Error(code, err.Error(), detailsOf(err))
	if f.Verbose && !f.JSON() {
		for _, h := range errors.GetAllHints(err) {
			fmt.Fprintf(f.Writer, "Hint: %s\n", h)
		}
	}
	return WrapExitError(exit, code, err)
}

// Table writes t as canonical CSV in text mode. In JSON mode it emits a
// summary with the row count and the CSV text.
func (f *OutputFormatter) Table(t *table.Table, extra map[string]any) error {
	if !f.JSON() {
		return table.WriteCSV(f.Writer, t)
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, t); err != nil {
		return err
	}
	data := map[string]any{
		"rows":    t.Len(),
		"columns": t.Width(),
		"csv":     buf.String(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return f.Success(data)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// detailsOf returns structured detail for errors that carry it.
func detailsOf(err error) any {
	if v := violationsOf(err); v != nil {
		return v
	}
	return nil
}
