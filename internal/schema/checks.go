package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/lydata/internal/table"
)

// Check is a named per-cell predicate. Checks only see non-null cells that
// already passed the column's type check.
type Check struct {
	Name string
	Fn   func(v table.Value) bool
}

// Matches requires text cells to match pattern.
func Matches(pattern string) Check {
	re := regexp.MustCompile(pattern)
	return Check{
		Name: fmt.Sprintf("str_matches(%s)", pattern),
		Fn: func(v table.Value) bool {
			return re.MatchString(v.String())
		},
	}
}

// InRange requires numeric cells in [lo, hi].
func InRange(lo, hi float64) Check {
	return Check{
		Name: fmt.Sprintf("in_range(%g, %g)", lo, hi),
		Fn: func(v table.Value) bool {
			f, ok := table.Number(v)
			return ok && f >= lo && f <= hi
		},
	}
}

// GreaterThan requires numeric cells strictly above x.
func GreaterThan(x float64) Check {
	return Check{
		Name: fmt.Sprintf("greater_than(%g)", x),
		Fn: func(v table.Value) bool {
			f, ok := table.Number(v)
			return ok && f > x
		},
	}
}

// IsIn requires the cell's text to be one of values.
func IsIn(values ...string) Check {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	return Check{
		Name: "isin(" + strings.Join(values, ", ") + ")",
		Fn: func(v table.Value) bool {
			return allowed[v.String()]
		},
	}
}
