package query

import (
	"github.com/roach88/lydata/internal/colmap"
	"github.com/roach88/lydata/internal/table"
)

// Executor evaluates predicates with a fixed alias registry.
type Executor struct {
	// Columns resolves references. A nil Columns uses colmap.Default().
	Columns Resolver
}

func (e Executor) resolver() Resolver {
	if e.Columns == nil {
		return colmap.Default()
	}
	return e.Columns
}

// Mask evaluates p against t. A nil p selects every row.
func (e Executor) Mask(t *table.Table, p Predicate) ([]bool, error) {
	if p == nil {
		p = True()
	}
	return p.Mask(t, e.resolver())
}

// Query returns the rows of t where p holds. t is not modified.
func (e Executor) Query(t *table.Table, p Predicate) (*table.Table, error) {
	mask, err := e.Mask(t, p)
	if err != nil {
		return nil, err
	}
	return t.Select(mask)
}

// Portion counts the rows matching q among those matching given. Either
// predicate may be nil, meaning every row.
func (e Executor) Portion(t *table.Table, q, given Predicate) (Portion, error) {
	r := e.resolver()
	if q == nil {
		q = True()
	}
	if given == nil {
		given = True()
	}
	qm, err := q.Mask(t, r)
	if err != nil {
		return Portion{}, err
	}
	gm, err := given.Mask(t, r)
	if err != nil {
		return Portion{}, err
	}
	var match, total int
	for i := range gm {
		if !gm[i] {
			continue
		}
		total++
		if qm[i] {
			match++
		}
	}
	return NewPortion(match, total)
}

// Mask evaluates p with the default alias registry.
func Mask(t *table.Table, p Predicate) ([]bool, error) {
	return Executor{}.Mask(t, p)
}

// Query filters t with the default alias registry.
func Query(t *table.Table, p Predicate) (*table.Table, error) {
	return Executor{}.Query(t, p)
}

// PortionOf measures q among given with the default alias registry.
func PortionOf(t *table.Table, q, given Predicate) (Portion, error) {
	return Executor{}.Portion(t, q, given)
}
