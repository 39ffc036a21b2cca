// Package transform turns raw institutional exports into canonical lydata
// tables. A Mapping describes every destination column; ExclusionRules drop
// rows before any column is computed.
package transform

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// Transform applies rules and m to raw.
//
// Configuration problems (unknown exclusion column, malformed rule) return a
// *ConfigError and no table. Column computations are isolated from each
// other: when some destination columns fail, the table is still returned
// with those columns left Null, together with a *TransformError that lists
// one *ParsingError per failed column.
func Transform(raw *RawTable, m *Mapping, rules []ExclusionRule) (*table.Table, error) {
	if raw == nil || m == nil {
		return nil, errors.New("transform: nil raw table or mapping")
	}
	keep, err := keepMask(raw, rules)
	if err != nil {
		return nil, err
	}
	var rows []int
	for r, k := range keep {
		if k {
			rows = append(rows, r)
		}
	}

	out := table.New(len(rows))
	var failures []*ParsingError
	for _, t := range m.targets {
		col, perr := evaluate(raw, rows, t)
		if perr != nil {
			failures = append(failures, perr)
			col = make([]table.Value, len(rows))
		}
		if err := out.Set(t.Key, col); err != nil {
			return nil, err
		}
	}
	if len(failures) > 0 {
		return out, &TransformError{Failures: failures}
	}
	return out, nil
}

func evaluate(raw *RawTable, rows []int, t Target) ([]table.Value, *ParsingError) {
	in := t.Instr
	col := make([]table.Value, len(rows))
	if in.HasDefault {
		for i := range col {
			col[i] = in.Default
		}
		return col, nil
	}

	sources := make([][]table.Value, len(in.Columns))
	for i, src := range in.Columns {
		vals, err := raw.Column(src)
		if err != nil {
			return nil, &ParsingError{Key: t.Key, Row: -1, Err: err}
		}
		sources[i] = vals
	}

	args := make([]table.Value, len(sources))
	for i, r := range rows {
		for j, src := range sources {
			args[j] = src[r]
		}
		v, err := call(in, args)
		if err != nil {
			return nil, &ParsingError{Key: t.Key, Row: r, Err: err}
		}
		col[i] = v
	}
	return col, nil
}

// call runs the instruction's func, turning panics into errors so a broken
// func only takes down its own column.
func call(in *Instruction, args []table.Value) (v table.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("%s panicked: %v", funcName(in), p)
		}
	}()
	v, err = in.Func(append([]table.Value(nil), args...), in.Kwargs)
	if err != nil {
		return nil, errors.Wrap(err, funcName(in))
	}
	if v == nil {
		v = table.Null{}
	}
	return v, nil
}

func funcName(in *Instruction) string {
	if in.FuncName != "" {
		return in.FuncName
	}
	return fmt.Sprintf("func(%d columns)", len(in.Columns))
}
