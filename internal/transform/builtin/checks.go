package builtin

import (
	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
)

func isNull(transform.Kwargs) (transform.ColumnCheck, error) {
	return transform.RowCheck(table.IsNull), nil
}

func notNull(transform.Kwargs) (transform.ColumnCheck, error) {
	return transform.RowCheck(func(v table.Value) bool { return !table.IsNull(v) }), nil
}

func equals(kw transform.Kwargs) (transform.ColumnCheck, error) {
	want, err := literal(kw, "value")
	if err != nil {
		return nil, err
	}
	return transform.RowCheck(func(v table.Value) bool { return table.Equal(v, want) }), nil
}

func notIn(kw transform.Kwargs) (transform.ColumnCheck, error) {
	raw, err := kw.Strings("values", nil)
	if err != nil {
		return nil, err
	}
	allowed := make([]table.Value, len(raw))
	for i, s := range raw {
		allowed[i] = table.Infer(s)
	}
	return transform.RowCheck(func(v table.Value) bool {
		for _, a := range allowed {
			if table.Equal(v, a) {
				return false
			}
		}
		return true
	}), nil
}

// presentAndNot excludes rows whose cell is filled with anything other than
// kwargs.value, e.g. a study flag column where "n" marks included patients.
func presentAndNot(kw transform.Kwargs) (transform.ColumnCheck, error) {
	keep, err := literal(kw, "value")
	if err != nil {
		return nil, err
	}
	return transform.RowCheck(func(v table.Value) bool {
		return !table.IsNull(v) && !table.Equal(v, keep)
	}), nil
}

func literal(kw transform.Kwargs, key string) (table.Value, error) {
	if !kw.Has(key) {
		return table.Null{}, nil
	}
	return table.ValueOf(kw[key])
}
