// Package querysql compiles query predicates into parameterized SQLite over
// the store's long-format cells table.
//
// Every cell of an imported dataset is one row in cells, keyed by
// (dataset_id, row_idx, col_idx). Its dynamic type is stored in kind using
// the table.Kind codes; booleans and numbers live in num and text in txt.
// A leaf compiles to a membership test on the row index:
//
//	r.row_idx IN (SELECT row_idx FROM cells
//	              WHERE dataset_id = ? AND col_idx = ? AND <cell condition>)
//
// Literal values are never interpolated into the SQL text; every one of them
// is passed as a ? parameter. The compiled statement always ends with
// ORDER BY r.row_idx ASC, so rows come back in table order.
package querysql

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/colmap"
	"github.com/roach88/lydata/internal/query"
	"github.com/roach88/lydata/internal/table"
)

// ErrNotCompilable marks predicates that only exist as Go code, such as
// match leaves.
var ErrNotCompilable = errors.New("predicate cannot be compiled to SQL")

// Compiler turns predicates into SQL for one stored dataset.
type Compiler struct {
	// Resolver maps column references to keys. Nil means colmap.Default().
	Resolver query.Resolver

	// ColumnIndex returns the stored col_idx of a key, or an error wrapping
	// table.ErrColumnNotFound.
	ColumnIndex func(table.Key) (int, error)
}

// Compile returns a statement selecting the matching row indexes of
// datasetID, with its parameters in placeholder order.
func (c *Compiler) Compile(datasetID string, p query.Predicate) (string, []any, error) {
	if c.ColumnIndex == nil {
		return "", nil, errors.New("compiler has no column index")
	}
	where, params, err := c.compilePredicate(datasetID, p)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT r.row_idx FROM (SELECT DISTINCT row_idx FROM cells WHERE dataset_id = ?) AS r")
	b.WriteString(" WHERE ")
	b.WriteString(where)
	b.WriteString(" ORDER BY r.row_idx ASC")

	return b.String(), append([]any{datasetID}, params...), nil
}

func (c *Compiler) compilePredicate(id string, p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil, *query.All:
		return "1 = 1", nil, nil
	case *query.Leaf:
		return c.compileLeaf(id, pred)
	case *query.And:
		return c.compileGroup(id, pred.Preds, " AND ", "1 = 1")
	case *query.Or:
		return c.compileGroup(id, pred.Preds, " OR ", "0 = 1")
	case *query.Not:
		sql, params, err := c.compilePredicate(id, pred.Pred)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	default:
		return "", nil, errors.Newf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) compileGroup(id string, preds []query.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var all []any
	for _, p := range preds {
		sql, params, err := c.compilePredicate(id, p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		all = append(all, params...)
	}
	return strings.Join(parts, sep), all, nil
}

func (c *Compiler) compileLeaf(id string, l *query.Leaf) (string, []any, error) {
	if l.Op == query.OpMatch {
		return "", nil, errors.Wrapf(ErrNotCompilable, "%s", l)
	}
	key, err := c.resolve(l.Ref)
	if err != nil {
		return "", nil, err
	}
	col, err := c.ColumnIndex(key)
	if err != nil {
		return "", nil, err
	}

	var (
		cond   string
		params []any
		negate bool
	)
	switch l.Op {
	case query.OpEq:
		cond, params = equals(l.Value)
	case query.OpNe:
		cond, params = equals(l.Value)
		negate = true
	case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		cond, params = ordered(l.Op, l.Value)
	case query.OpIn:
		var parts []string
		for _, v := range l.Values {
			sql, ps := equals(v)
			if sql == "" {
				continue
			}
			parts = append(parts, "("+sql+")")
			params = append(params, ps...)
		}
		if len(parts) > 0 {
			cond = strings.Join(parts, " OR ")
		}
	case query.OpIsNull:
		cond = "kind = 0"
	case query.OpNotNull:
		cond = "kind <> 0"
	default:
		return "", nil, errors.Newf("unknown operator %q", l.Op)
	}

	// An empty condition can never hold, e.g. equality with a null literal.
	if cond == "" {
		if negate {
			return "1 = 1", nil, nil
		}
		return "0 = 1", nil, nil
	}

	sub := "r.row_idx IN (SELECT row_idx FROM cells WHERE dataset_id = ? AND col_idx = ? AND (" + cond + "))"
	if negate {
		sub = "NOT " + sub
	}
	return sub, append([]any{id, col}, params...), nil
}

func (c *Compiler) resolve(ref string) (table.Key, error) {
	r := c.Resolver
	if r == nil {
		r = colmap.Default()
	}
	return r.Resolve(ref)
}

// equals mirrors table.Equal: numbers compare numerically across Int and
// Float, nulls never match.
func equals(v table.Value) (string, []any) {
	switch x := v.(type) {
	case table.Bool:
		return "kind = 1 AND num = ?", []any{boolNum(x)}
	case table.Int, table.Float:
		f, _ := table.Number(x)
		return "kind IN (2, 3) AND num = ?", []any{f}
	case table.String:
		return "kind = 4 AND txt = ?", []any{string(x)}
	}
	return "", nil
}

// ordered mirrors query.Compare. Text compares bytewise, which is SQLite's
// BINARY collation.
func ordered(op query.Op, v table.Value) (string, []any) {
	switch x := v.(type) {
	case table.Bool:
		return "kind = 1 AND num " + string(op) + " ?", []any{boolNum(x)}
	case table.Int, table.Float:
		f, _ := table.Number(x)
		return "kind IN (2, 3) AND num " + string(op) + " ?", []any{f}
	case table.String:
		return "kind = 4 AND txt " + string(op) + " ?", []any{string(x)}
	}
	return "", nil
}

func boolNum(b table.Bool) float64 {
	if b {
		return 1
	}
	return 0
}
