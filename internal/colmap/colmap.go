// Package colmap maps short column aliases such as "age" to canonical
// three-level keys and back, and aggregates summary statistics per column.
package colmap

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// AggFunc summarizes a column for Stats.
type AggFunc func(col []table.Value) any

// Spec ties a short alias to its canonical key and aggregation.
type Spec struct {
	Short string
	Long  table.Key
	Agg   AggFunc // nil means ValueCounts
}

// Aggregate applies Agg to col.
func (s Spec) Aggregate(col []table.Value) any {
	if s.Agg == nil {
		return ValueCounts(col)
	}
	return s.Agg(col)
}

// Map is a bidirectional alias registry. The zero value is empty and usable.
type Map struct {
	specs     []Spec
	fromShort map[string]int
	fromLong  map[table.Key]int
}

// New builds a Map from specs. Duplicate aliases or keys are rejected.
func New(specs ...Spec) (*Map, error) {
	m := &Map{
		fromShort: make(map[string]int, len(specs)),
		fromLong:  make(map[table.Key]int, len(specs)),
	}
	for _, s := range specs {
		if s.Short == "" {
			return nil, errors.Newf("alias for %s is empty", s.Long)
		}
		if _, dup := m.fromShort[s.Short]; dup {
			return nil, errors.Newf("duplicate alias %q", s.Short)
		}
		if _, dup := m.fromLong[s.Long]; dup {
			return nil, errors.Newf("duplicate column %s", s.Long)
		}
		m.fromShort[s.Short] = len(m.specs)
		m.fromLong[s.Long] = len(m.specs)
		m.specs = append(m.specs, s)
	}
	return m, nil
}

// Default returns a fresh copy of the standard lydata aliases.
func Default() *Map {
	m, err := New(
		Spec{Short: "age", Long: table.K("patient", "#", "age")},
		Spec{Short: "hpv", Long: table.K("patient", "#", "hpv_status")},
		Spec{Short: "smoke", Long: table.K("patient", "#", "nicotine_abuse")},
		Spec{Short: "alcohol", Long: table.K("patient", "#", "alcohol_abuse")},
		Spec{Short: "t_stage", Long: table.K("tumor", "1", "t_stage")},
		Spec{Short: "n_stage", Long: table.K("patient", "#", "n_stage")},
		Spec{Short: "m_stage", Long: table.K("patient", "#", "m_stage")},
		Spec{Short: "midext", Long: table.K("tumor", "1", "extension")},
	)
	if err != nil {
		panic(err)
	}
	return m
}

// Specs returns the registered specs in registration order.
func (m *Map) Specs() []Spec {
	return append([]Spec(nil), m.specs...)
}

// FromShort looks up a spec by alias.
func (m *Map) FromShort(short string) (Spec, bool) {
	i, ok := m.fromShort[short]
	if !ok {
		return Spec{}, false
	}
	return m.specs[i], true
}

// FromLong looks up a spec by canonical key.
func (m *Map) FromLong(k table.Key) (Spec, bool) {
	i, ok := m.fromLong[k]
	if !ok {
		return Spec{}, false
	}
	return m.specs[i], true
}

// Resolve turns a column reference into a canonical key. A reference is
// either a registered alias or a domain/group/field path.
func (m *Map) Resolve(ref string) (table.Key, error) {
	if m != nil {
		if s, ok := m.FromShort(ref); ok {
			return s.Long, nil
		}
	}
	k, err := table.ParseKey(ref)
	if err != nil {
		return table.Key{}, errors.Wrapf(table.ErrColumnNotFound, "unknown column reference %q", ref)
	}
	return k, nil
}
