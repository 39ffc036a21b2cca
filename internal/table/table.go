package table

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// ErrColumnNotFound is returned when a key does not name a column.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered collection of equally long columns addressed by Key.
//
// Tables are built with New and Set, then treated as values: Select, Take,
// Update and Concat all return new tables and leave their inputs untouched.
type Table struct {
	rows  int
	keys  []Key
	index map[Key]int
	cols  [][]Value
}

// New creates an empty table with a fixed number of rows.
func New(rows int) *Table {
	return &Table{rows: rows, index: make(map[Key]int)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.keys)
}

// Keys returns the column keys in order.
func (t *Table) Keys() []Key {
	return slices.Clone(t.keys)
}

// Has reports whether the table has a column for k.
func (t *Table) Has(k Key) bool {
	_, ok := t.index[k]
	return ok
}

// Set adds or replaces the column k. It is meant for building a table; once a
// table has been handed out it should not be modified.
func (t *Table) Set(k Key, values []Value) error {
	if len(values) != t.rows {
		return errors.Newf("column %s has %d values, table has %d rows", k, len(values), t.rows)
	}
	col := slices.Clone(values)
	for i, v := range col {
		if v == nil {
			col[i] = Null{}
		}
	}
	if i, ok := t.index[k]; ok {
		t.cols[i] = col
		return nil
	}
	t.index[k] = len(t.keys)
	t.keys = append(t.keys, k)
	t.cols = append(t.cols, col)
	return nil
}

// Column returns a copy of the values in column k.
func (t *Table) Column(k Key) ([]Value, error) {
	i, ok := t.index[k]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%s", k)
	}
	return slices.Clone(t.cols[i]), nil
}

// Cell returns the value at row r of column k.
func (t *Table) Cell(r int, k Key) (Value, error) {
	i, ok := t.index[k]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%s", k)
	}
	if r < 0 || r >= t.rows {
		return nil, errors.Newf("row %d out of range [0, %d)", r, t.rows)
	}
	return t.cols[i][r], nil
}

// Domains returns the distinct top-level header values in column order.
func (t *Table) Domains() []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range t.keys {
		if !seen[k.Domain] {
			seen[k.Domain] = true
			out = append(out, k.Domain)
		}
	}
	return out
}

// KeysIn returns the keys whose domain is d, in column order.
func (t *Table) KeysIn(d string) []Key {
	var out []Key
	for _, k := range t.keys {
		if k.Domain == d {
			out = append(out, k)
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := New(t.rows)
	for i, k := range t.keys {
		out.index[k] = i
		out.keys = append(out.keys, k)
		out.cols = append(out.cols, slices.Clone(t.cols[i]))
	}
	return out
}

// Select keeps the rows where mask is true.
func (t *Table) Select(mask []bool) (*Table, error) {
	if len(mask) != t.rows {
		return nil, errors.Newf("mask has %d entries, table has %d rows", len(mask), t.rows)
	}
	var rows []int
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Take returns a table with the given rows, in the given order.
func (t *Table) Take(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, errors.Newf("row %d out of range [0, %d)", r, t.rows)
		}
	}
	out := New(len(rows))
	for i, k := range t.keys {
		col := make([]Value, len(rows))
		for j, r := range rows {
			col[j] = t.cols[i][r]
		}
		out.index[k] = i
		out.keys = append(out.keys, k)
		out.cols = append(out.cols, col)
	}
	return out, nil
}

// Update merges other into a copy of t. Columns missing from t are appended;
// for shared columns only cells that are Null in t are filled. Known values
// in t are never overwritten.
func (t *Table) Update(other *Table) (*Table, error) {
	if other.rows != t.rows {
		return nil, errors.Newf("update with %d rows into table with %d rows", other.rows, t.rows)
	}
	out := t.Clone()
	for j, k := range other.keys {
		src := other.cols[j]
		i, ok := out.index[k]
		if !ok {
			out.index[k] = len(out.keys)
			out.keys = append(out.keys, k)
			out.cols = append(out.cols, slices.Clone(src))
			continue
		}
		dst := out.cols[i]
		for r, v := range src {
			if IsNull(dst[r]) && !IsNull(v) {
				dst[r] = v
			}
		}
	}
	return out, nil
}

// Concat stacks tables row-wise. The result has the union of all columns in
// first-seen order; cells of columns a table lacks are Null.
func Concat(tables ...*Table) *Table {
	total := 0
	var keys []Key
	seen := make(map[Key]bool)
	for _, t := range tables {
		total += t.rows
		for _, k := range t.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	out := New(total)
	for _, k := range keys {
		col := make([]Value, 0, total)
		for _, t := range tables {
			if i, ok := t.index[k]; ok {
				col = append(col, t.cols[i]...)
				continue
			}
			for range t.rows {
				col = append(col, Null{})
			}
		}
		out.index[k] = len(out.keys)
		out.keys = append(out.keys, k)
		out.cols = append(out.cols, col)
	}
	return out
}
