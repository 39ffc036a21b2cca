package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// Resolver maps a column reference to its canonical key. *colmap.Map
// implements it.
type Resolver interface {
	Resolve(ref string) (table.Key, error)
}

// Op is a leaf comparison operator.
type Op string

const (
	OpEq      Op = "=="
	OpNe      Op = "!="
	OpLt      Op = "<"
	OpLe      Op = "<="
	OpGt      Op = ">"
	OpGe      Op = ">="
	OpIn      Op = "in"
	OpIsNull  Op = "is null"
	OpNotNull Op = "not null"
	OpMatch   Op = "match"
)

// ColumnFunc is a custom predicate applied to a whole resolved column. It must
// return one entry per cell.
type ColumnFunc func(col []table.Value) []bool

// Predicate is a sealed interface for query predicates. Only *Leaf, *And,
// *Or, *Not and *All implement it.
type Predicate interface {
	// Mask evaluates the predicate against t, one entry per row.
	Mask(t *table.Table, r Resolver) ([]bool, error)
	String() string
	predicateNode()
}

// Leaf compares one column against a literal, or applies Func to it when
// Op is OpMatch.
type Leaf struct {
	Ref    string
	Op     Op
	Value  table.Value   // ==, !=, <, <=, >, >=
	Values []table.Value // in
	Func   ColumnFunc    // match
	Name   string        // match; used by String

	err error // literal conversion failure, reported by Mask
}

func (*Leaf) predicateNode() {}

// Mask resolves the column and evaluates the leaf cell by cell.
func (l *Leaf) Mask(t *table.Table, r Resolver) ([]bool, error) {
	if l.err != nil {
		return nil, l.err
	}
	key, err := resolve(r, l.Ref)
	if err != nil {
		return nil, err
	}
	col, err := t.Column(key)
	if err != nil {
		return nil, err
	}

	if l.Op == OpMatch {
		if l.Func == nil {
			return nil, errors.Newf("match predicate on %s has no function", l.Ref)
		}
		mask := l.Func(col)
		if len(mask) != len(col) {
			return nil, errors.Newf("match predicate %s returned %d entries for %d rows", l.Name, len(mask), len(col))
		}
		return mask, nil
	}

	test, err := l.cellTest()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(col))
	for i, v := range col {
		mask[i] = test(v)
	}
	return mask, nil
}

func (l *Leaf) cellTest() (func(table.Value) bool, error) {
	switch l.Op {
	case OpEq:
		return func(v table.Value) bool { return table.Equal(v, l.Value) }, nil
	case OpNe:
		return func(v table.Value) bool { return table.IsNull(v) || !table.Equal(v, l.Value) }, nil
	case OpLt:
		return ordered(l.Value, func(c int) bool { return c < 0 }), nil
	case OpLe:
		return ordered(l.Value, func(c int) bool { return c <= 0 }), nil
	case OpGt:
		return ordered(l.Value, func(c int) bool { return c > 0 }), nil
	case OpGe:
		return ordered(l.Value, func(c int) bool { return c >= 0 }), nil
	case OpIn:
		return func(v table.Value) bool {
			for _, x := range l.Values {
				if table.Equal(v, x) {
					return true
				}
			}
			return false
		}, nil
	case OpIsNull:
		return table.IsNull, nil
	case OpNotNull:
		return func(v table.Value) bool { return !table.IsNull(v) }, nil
	default:
		return nil, errors.Newf("unknown operator %q", l.Op)
	}
}

func ordered(lit table.Value, accept func(int) bool) func(table.Value) bool {
	return func(v table.Value) bool {
		c, ok := Compare(v, lit)
		return ok && accept(c)
	}
}

// Compare orders two cells. Numbers compare numerically, text
// lexicographically and booleans with false before true. ok is false when
// either cell is null or the kinds cannot be ordered against each other.
func Compare(a, b table.Value) (c int, ok bool) {
	if table.IsNull(a) || table.IsNull(b) {
		return 0, false
	}
	if x, ok := table.Number(a); ok {
		y, ok := table.Number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case table.String:
		y, ok := b.(table.String)
		return strings.Compare(string(x), string(y)), ok
	case table.Bool:
		y, ok := b.(table.Bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case bool(y):
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func (l *Leaf) String() string {
	switch l.Op {
	case OpIsNull, OpNotNull:
		return l.Ref + " " + string(l.Op)
	case OpMatch:
		return fmt.Sprintf("%s match %s", l.Ref, l.Name)
	case OpIn:
		parts := make([]string, len(l.Values))
		for i, v := range l.Values {
			parts[i] = literal(v)
		}
		return fmt.Sprintf("%s in [%s]", l.Ref, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s %s %s", l.Ref, l.Op, literal(l.Value))
}

func literal(v table.Value) string {
	switch v.(type) {
	case nil, table.Null:
		return "null"
	case table.String:
		return strconv.Quote(v.String())
	}
	return v.String()
}

// And is true where every child is true. An empty And is true everywhere.
type And struct {
	Preds []Predicate
}

func (*And) predicateNode() {}

func (a *And) Mask(t *table.Table, r Resolver) ([]bool, error) {
	return combine(t, r, a.Preds, true, func(x, y bool) bool { return x && y })
}

func (a *And) String() string {
	return join(a.Preds, " AND ", "ALL")
}

// Or is true where any child is true. An empty Or is false everywhere.
type Or struct {
	Preds []Predicate
}

func (*Or) predicateNode() {}

func (o *Or) Mask(t *table.Table, r Resolver) ([]bool, error) {
	return combine(t, r, o.Preds, false, func(x, y bool) bool { return x || y })
}

func (o *Or) String() string {
	return join(o.Preds, " OR ", "NONE")
}

// Not inverts its child.
type Not struct {
	Pred Predicate
}

func (*Not) predicateNode() {}

func (n *Not) Mask(t *table.Table, r Resolver) ([]bool, error) {
	mask, err := n.Pred.Mask(t, r)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = !m
	}
	return out, nil
}

func (n *Not) String() string {
	return "NOT " + wrap(n.Pred)
}

// All is true for every row. It is the default when no filter is given.
type All struct{}

func (*All) predicateNode() {}

func (*All) Mask(t *table.Table, _ Resolver) ([]bool, error) {
	return fill(t.Len(), true), nil
}

func (*All) String() string {
	return "ALL"
}

func combine(t *table.Table, r Resolver, preds []Predicate, init bool, op func(x, y bool) bool) ([]bool, error) {
	out := fill(t.Len(), init)
	for _, p := range preds {
		m, err := p.Mask(t, r)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = op(out[i], m[i])
		}
	}
	return out, nil
}

func fill(n int, v bool) []bool {
	out := make([]bool, n)
	if v {
		for i := range out {
			out[i] = true
		}
	}
	return out
}

func join(preds []Predicate, sep, empty string) string {
	if len(preds) == 0 {
		return empty
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = wrap(p)
	}
	return strings.Join(parts, sep)
}

func wrap(p Predicate) string {
	switch p.(type) {
	case *And, *Or:
		return "(" + p.String() + ")"
	}
	return p.String()
}

func resolve(r Resolver, ref string) (table.Key, error) {
	if r != nil {
		return r.Resolve(ref)
	}
	k, err := table.ParseKey(ref)
	if err != nil {
		return table.Key{}, errors.Wrapf(table.ErrColumnNotFound, "%s", ref)
	}
	return k, nil
}
