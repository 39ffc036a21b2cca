package transform

import (
	"github.com/roach88/lydata/internal/table"
)

// ColumnCheck inspects a whole raw column and returns, per row, whether the
// row must be excluded.
type ColumnCheck func(col []table.Value) ([]bool, error)

// RowCheck lifts a per-cell predicate to a ColumnCheck.
func RowCheck(pred func(v table.Value) bool) ColumnCheck {
	return func(col []table.Value) ([]bool, error) {
		mask := make([]bool, len(col))
		for i, v := range col {
			mask[i] = pred(v)
		}
		return mask, nil
	}
}

// ExclusionRule drops every row for which Check is true on Column.
type ExclusionRule struct {
	Column SourceKey
	Check  ColumnCheck
	Name   string // optional, used in error messages
}

// keepMask evaluates all rules and returns the rows that survive. With no
// rules every row is kept.
func keepMask(raw *RawTable, rules []ExclusionRule) ([]bool, error) {
	keep := make([]bool, raw.Len())
	for i := range keep {
		keep[i] = true
	}
	for _, rule := range rules {
		path := rule.Name
		if path == "" {
			path = "exclude[" + rule.Column.String() + "]"
		}
		if rule.Check == nil {
			return nil, &ConfigError{Path: path, Message: "exclusion rule has no check"}
		}
		col, err := raw.Column(rule.Column)
		if err != nil {
			return nil, &ConfigError{Path: path, Message: err.Error()}
		}
		drop, err := rule.Check(col)
		if err != nil {
			return nil, &ConfigError{Path: path, Message: "check failed: " + err.Error()}
		}
		if len(drop) != len(keep) {
			return nil, &ConfigError{Path: path, Message: "check returned a mask of the wrong length"}
		}
		for r, d := range drop {
			if d {
				keep[r] = false
			}
		}
	}
	return keep, nil
}
