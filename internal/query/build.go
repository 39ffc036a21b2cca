package query

import (
	"github.com/roach88/lydata/internal/table"
)

// C starts a leaf predicate on a column reference.
//
//	query.C("age").Ge(50)
//	query.C("CT/ipsi/II").Eq(true)
func C(ref string) Col {
	return Col(ref)
}

// Col is a column reference awaiting an operator.
type Col string

func (c Col) Eq(v any) *Leaf { return c.cmp(OpEq, v) }
func (c Col) Ne(v any) *Leaf { return c.cmp(OpNe, v) }
func (c Col) Lt(v any) *Leaf { return c.cmp(OpLt, v) }
func (c Col) Le(v any) *Leaf { return c.cmp(OpLe, v) }
func (c Col) Gt(v any) *Leaf { return c.cmp(OpGt, v) }
func (c Col) Ge(v any) *Leaf { return c.cmp(OpGe, v) }

// In matches cells equal to any of vs.
func (c Col) In(vs ...any) *Leaf {
	l := &Leaf{Ref: string(c), Op: OpIn}
	for _, v := range vs {
		val, err := table.ValueOf(v)
		if err != nil {
			l.err = err
			break
		}
		l.Values = append(l.Values, val)
	}
	return l
}

// IsNull matches unknown cells.
func (c Col) IsNull() *Leaf { return &Leaf{Ref: string(c), Op: OpIsNull} }

// NotNull matches known cells.
func (c Col) NotNull() *Leaf { return &Leaf{Ref: string(c), Op: OpNotNull} }

// Match applies fn to the whole resolved column. name labels the predicate
// in String.
func (c Col) Match(name string, fn ColumnFunc) *Leaf {
	return &Leaf{Ref: string(c), Op: OpMatch, Func: fn, Name: name}
}

func (c Col) cmp(op Op, v any) *Leaf {
	if fn, ok := asColumnFunc(v); ok {
		return c.Match("func", fn)
	}
	val, err := table.ValueOf(v)
	return &Leaf{Ref: string(c), Op: op, Value: val, err: err}
}

// Q builds a leaf from an operator string. Accepted operators are ==, =,
// !=, <, <=, >, >= and in; for "in", value must be a slice. A ColumnFunc
// value is applied to the resolved column as is and op is ignored.
func Q(ref string, op string, value any) *Leaf {
	c := C(ref)
	if fn, ok := asColumnFunc(value); ok {
		return c.Match("func", fn)
	}
	switch Op(op) {
	case OpEq, "=":
		return c.Eq(value)
	case OpNe:
		return c.Ne(value)
	case OpLt:
		return c.Lt(value)
	case OpLe:
		return c.Le(value)
	case OpGt:
		return c.Gt(value)
	case OpGe:
		return c.Ge(value)
	case OpIn:
		switch vs := value.(type) {
		case []any:
			return c.In(vs...)
		case []string:
			args := make([]any, len(vs))
			for i, s := range vs {
				args[i] = s
			}
			return c.In(args...)
		case []table.Value:
			return &Leaf{Ref: ref, Op: OpIn, Values: vs}
		}
		return &Leaf{Ref: ref, Op: OpIn, err: errInLiteral(ref)}
	}
	return &Leaf{Ref: ref, Op: Op(op), err: errUnknownOp(op)}
}

// AndOf combines predicates with AND.
func AndOf(preds ...Predicate) *And {
	return &And{Preds: preds}
}

// OrOf combines predicates with OR.
func OrOf(preds ...Predicate) *Or {
	return &Or{Preds: preds}
}

// Negate inverts p.
func Negate(p Predicate) *Not {
	return &Not{Pred: p}
}

// True returns the neutral predicate.
func True() *All {
	return &All{}
}

func asColumnFunc(v any) (ColumnFunc, bool) {
	switch fn := v.(type) {
	case ColumnFunc:
		return fn, fn != nil
	case func([]table.Value) []bool:
		return fn, fn != nil
	}
	return nil, false
}
