package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/lydata/internal/query"
	"github.com/roach88/lydata/internal/store"
	"github.com/roach88/lydata/internal/table"
)

// AssertionContext is what assertions can look at besides the result.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Dataset string
	// Stored is the table as imported, before fusion.
	Stored *table.Table
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion, appends one trace line per
// assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		detail, err := evaluate(result, a, actx)
		stage := fmt.Sprintf("assert[%d] %s", i, a.Type)
		if err != nil {
			result.AddTrace(stage, "FAIL")
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
			continue
		}
		result.AddTrace(stage, "ok %s", detail)
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) (string, error) {
	switch a.Type {
	case AssertRowCount:
		return assertRowCount(result.Table, a)
	case AssertColumnValues:
		return assertColumnValues(result.Table, a)
	case AssertPortion:
		return assertPortion(result.Table, a)
	case AssertSelect:
		return assertSelect(actx, a)
	case AssertViolations:
		if len(result.Violations) != a.Count {
			return "", &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(len(result.Violations))}
		}
		return fmt.Sprint(a.Count), nil
	}
	return "", fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertRowCount(t *table.Table, a Assertion) (string, error) {
	if t.Len() != a.Count {
		return "", &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d row(s)", a.Count), Actual: fmt.Sprintf("%d row(s)", t.Len())}
	}
	return fmt.Sprintf("%d", a.Count), nil
}

func assertColumnValues(t *table.Table, a Assertion) (string, error) {
	key, err := table.ParseKey(a.Column)
	if err != nil {
		return "", err
	}
	got, err := t.Column(key)
	if err != nil {
		return "", err
	}
	want := make([]table.Value, len(a.Values))
	for i, v := range a.Values {
		if want[i], err = table.ValueOf(v); err != nil {
			return "", fmt.Errorf("values[%d]: %w", i, err)
		}
	}
	if !slices.EqualFunc(got, want, sameCell) {
		return "", &AssertionError{Type: a.Type, Expected: cells(want), Actual: cells(got)}
	}
	return a.Column, nil
}

func assertPortion(t *table.Table, a Assertion) (string, error) {
	q, err := query.ParseConditions(a.Where)
	if err != nil {
		return "", err
	}
	given, err := query.ParseConditions(a.Given)
	if err != nil {
		return "", err
	}
	p, err := query.PortionOf(t, q, given)
	if err != nil {
		return "", err
	}
	if p.Match != a.Match || p.Total != a.Total {
		return "", &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d/%d", a.Match, a.Total), Actual: p.String()}
	}
	return p.String(), nil
}

// assertSelect runs the condition as SQL over the stored dataset and
// checks it against both the expected count and the in-memory query.
func assertSelect(actx *AssertionContext, a Assertion) (string, error) {
	pred, err := query.ParseConditions(a.Where)
	if err != nil {
		return "", err
	}
	rows, err := actx.Store.RowIndexes(actx.Ctx, actx.Dataset, pred, nil)
	if err != nil {
		return "", err
	}
	mask, err := query.Mask(actx.Stored, pred)
	if err != nil {
		return "", err
	}
	var want []int
	for r, ok := range mask {
		if ok {
			want = append(want, r)
		}
	}
	if !slices.Equal(rows, want) {
		return "", &AssertionError{Type: a.Type, Expected: fmt.Sprintf("rows %v (in memory)", want), Actual: fmt.Sprintf("rows %v (sql)", rows)}
	}
	if len(rows) != a.Count {
		return "", &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d row(s)", a.Count), Actual: fmt.Sprintf("%d row(s)", len(rows))}
	}
	return fmt.Sprintf("%s: %d row(s)", pred, len(rows)), nil
}

func sameCell(a, b table.Value) bool {
	if table.IsNull(a) || table.IsNull(b) {
		return table.IsNull(a) && table.IsNull(b)
	}
	return a.Kind() == b.Kind() && a.String() == b.String()
}

func cells(vs []table.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		if table.IsNull(v) {
			parts[i] = "null"
			continue
		}
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
