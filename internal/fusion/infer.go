package fusion

import (
	"github.com/roach88/lydata/internal/table"
)

// Subdivision names a superlevel and the suffixes of its sublevels, e.g.
// II with a and b for IIa and IIb.
type Subdivision struct {
	Super string
	Subs  []string
}

// Sublevels returns the full sublevel names.
func (s Subdivision) Sublevels() []string {
	out := make([]string, len(s.Subs))
	for i, sub := range s.Subs {
		out[i] = s.Super + sub
	}
	return out
}

// DefaultSubdivisions returns I, II and V, each split into a and b.
func DefaultSubdivisions() []Subdivision {
	return []Subdivision{
		{Super: "I", Subs: []string{"a", "b"}},
		{Super: "II", Subs: []string{"a", "b"}},
		{Super: "V", Subs: []string{"a", "b"}},
	}
}

// DefaultSides returns ipsi and contra.
func DefaultSides() []string {
	return []string{"ipsi", "contra"}
}

// LevelOptions selects the columns level inference walks. Nil fields use
// the registry's modality names, DefaultSides and DefaultSubdivisions.
type LevelOptions struct {
	Modalities   []string
	Sides        []string
	Subdivisions []Subdivision
}

func (e *Engine) levels() LevelOptions {
	o := e.Levels
	if o.Modalities == nil {
		o.Modalities = e.modalities().Names()
	}
	if o.Sides == nil {
		o.Sides = DefaultSides()
	}
	if o.Subdivisions == nil {
		o.Subdivisions = DefaultSubdivisions()
	}
	return o
}

// InferSublevels derives sublevel columns from superlevels: a healthy
// superlevel makes every sublevel healthy, while an involved or unknown
// one leaves them unknown. Only superlevel columns present in t produce
// output.
func (e *Engine) InferSublevels(t *table.Table) (*table.Table, error) {
	o := e.levels()
	out := table.New(t.Len())
	for _, mod := range o.Modalities {
		for _, side := range o.Sides {
			for _, sd := range o.Subdivisions {
				k := table.K(mod, side, sd.Super)
				if !t.Has(k) {
					continue
				}
				col, err := t.Column(k)
				if err != nil {
					return nil, err
				}
				derived := make([]table.Value, len(col))
				for r, tri := range table.Tris(col) {
					if tri == table.False {
						derived[r] = table.Bool(false)
					} else {
						derived[r] = table.Null{}
					}
				}
				for _, sub := range sd.Sublevels() {
					if err := out.Set(table.K(mod, side, sub), derived); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return out, nil
}

// InferSuperlevels derives superlevel columns from sublevels: any involved
// sublevel makes the superlevel involved, all unknown leaves it unknown and
// otherwise it is healthy. All sublevel columns of a subdivision must be
// present in t for it to produce output.
func (e *Engine) InferSuperlevels(t *table.Table) (*table.Table, error) {
	o := e.levels()
	out := table.New(t.Len())
	for _, mod := range o.Modalities {
		for _, side := range o.Sides {
			for _, sd := range o.Subdivisions {
				subs, ok, err := subColumns(t, mod, side, sd)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				derived := make([]table.Value, t.Len())
				for r := range derived {
					derived[r] = superOf(subs, r).Value()
				}
				if err := out.Set(table.K(mod, side, sd.Super), derived); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func subColumns(t *table.Table, mod, side string, sd Subdivision) ([][]table.Tri, bool, error) {
	var subs [][]table.Tri
	for _, sub := range sd.Sublevels() {
		k := table.K(mod, side, sub)
		if !t.Has(k) {
			return nil, false, nil
		}
		col, err := t.Column(k)
		if err != nil {
			return nil, false, err
		}
		subs = append(subs, table.Tris(col))
	}
	return subs, len(subs) > 0, nil
}

func superOf(subs [][]table.Tri, r int) table.Tri {
	allUnknown := true
	for _, s := range subs {
		switch s[r] {
		case table.True:
			return table.True
		case table.False:
			allUnknown = false
		}
	}
	if allUnknown {
		return table.Unknown
	}
	return table.False
}
