package schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/lydata/internal/table"
)

// Violation codes (E200-E299)
const (
	ErrMissingColumn = "E201" // required column absent
	ErrNullValue     = "E202" // null in non-nullable column
	ErrWrongType     = "E203" // cell has the wrong type
	ErrCheckFailed   = "E204" // cell failed a value check
)

// Violation is one failed contract. Row is -1 for column-level problems.
type Violation struct {
	Column  string `json:"column"`
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Check   string `json:"check,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Row < 0 {
		return fmt.Sprintf("[%s] %s: %s", v.Code, v.Column, v.Message)
	}
	return fmt.Sprintf("[%s] %s row %d: %s", v.Code, v.Column, v.Row, v.Message)
}

// SchemaError lists every violation found in a table.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	const shown = 5
	parts := make([]string, 0, shown)
	for i, v := range e.Violations {
		if i == shown {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Violations)-shown))
			break
		}
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("schema validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(parts, "; "))
}

// Validate checks t against every contract and reports all violations at
// once. On success it returns a copy of t in which boolean columns holding
// 0/1 integers are coerced to booleans. Columns not in the schema pass
// through unchecked.
func (s *Schema) Validate(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	var violations []Violation

	for _, c := range s.columns {
		name := c.Key.String()
		col, err := t.Column(c.Key)
		if err != nil {
			if c.Required {
				violations = append(violations, Violation{
					Column:  name,
					Row:     -1,
					Code:    ErrMissingColumn,
					Message: "column is required",
				})
			}
			continue
		}

		coerced := false
		for r, v := range col {
			if table.IsNull(v) {
				if !c.Nullable {
					violations = append(violations, Violation{
						Column: name, Row: r, Code: ErrNullValue,
						Message: "null value in non-nullable column",
					})
				}
				continue
			}
			cv, ok := coerce(v, c.Type)
			if !ok {
				violations = append(violations, Violation{
					Column: name, Row: r, Code: ErrWrongType, Value: v.String(),
					Message: fmt.Sprintf("expected %s, got %s", c.Type, v.Kind()),
				})
				continue
			}
			if cv != v {
				col[r] = cv
				coerced = true
			}
			for _, chk := range c.Checks {
				if !chk.Fn(cv) {
					violations = append(violations, Violation{
						Column: name, Row: r, Code: ErrCheckFailed, Check: chk.Name, Value: v.String(),
						Message: "failed " + chk.Name,
					})
				}
			}
		}
		if coerced {
			if err := out.Set(c.Key, col); err != nil {
				return nil, err
			}
		}
	}

	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}
	return out, nil
}

// coerce converts v to typ where lossless. ok is false for a type mismatch.
func coerce(v table.Value, typ DType) (table.Value, bool) {
	switch typ {
	case TypeString:
		_, ok := v.(table.String)
		return v, ok
	case TypeInt:
		switch x := v.(type) {
		case table.Int:
			return x, true
		case table.Float:
			f := float64(x)
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				return table.Int(int64(f)), true
			}
		}
		return v, false
	case TypeFloat:
		switch x := v.(type) {
		case table.Float:
			return x, true
		case table.Int:
			return table.Float(x), true
		}
		return v, false
	case TypeBool:
		tri, ok := table.TriOf(v)
		if !ok {
			return v, false
		}
		return tri.Value(), true
	case TypeDate:
		s, ok := v.(table.String)
		if !ok {
			return v, false
		}
		_, err := time.Parse(time.DateOnly, string(s))
		return v, err == nil
	}
	return v, false
}
