package transform

import (
	"fmt"
	"strings"

	"github.com/roach88/lydata/internal/table"
)

// ConfigError reports a malformed mapping or exclusion rule. It is always
// raised before any row is processed.
type ConfigError struct {
	Path    string // label path of the offending node, may be empty
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "mapping config: " + e.Message
	}
	return fmt.Sprintf("mapping config: %s: %s", e.Path, e.Message)
}

// ParsingError reports that computing one destination column failed. Row is
// -1 when the failure is not tied to a row, e.g. a missing source column.
type ParsingError struct {
	Key table.Key
	Row int
	Err error
}

func (e *ParsingError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("parse column %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("parse column %s (row %d): %v", e.Key, e.Row, e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// TransformError collects the parsing failures of a transform run, one per
// failed destination column.
type TransformError struct {
	Failures []*ParsingError
}

func (e *TransformError) Error() string {
	keys := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		keys[i] = f.Key.String()
	}
	return fmt.Sprintf("%d column(s) failed to parse: %s", len(e.Failures), strings.Join(keys, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TransformError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}
