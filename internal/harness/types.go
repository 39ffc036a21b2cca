package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/table"
)

// TraceEvent is one pipeline stage or assertion outcome.
type TraceEvent struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

func (e TraceEvent) String() string {
	return e.Stage + ": " + e.Detail
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when no assertion failed and no violation went
	// unexpected.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Violations found by the validation stage.
	Violations []schema.Violation `json:"violations,omitempty"`

	// Table is the final table after fusion.
	Table *table.Table `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a stage line.
func (r *Result) AddTrace(stage, format string, args ...any) {
	r.Trace = append(r.Trace, TraceEvent{Stage: stage, Detail: fmt.Sprintf(format, args...)})
}

// TraceText renders the trace one event per line.
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
