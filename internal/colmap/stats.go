package colmap

import (
	"github.com/roach88/lydata/internal/table"
)

// Count is one entry of a value histogram.
type Count struct {
	Value table.Value `json:"-"`
	Label string      `json:"value"`
	N     int         `json:"count"`
}

// ValueCounts counts occurrences of every distinct value, nulls included,
// in order of first appearance. Int and Float cells with the same numeric
// value are counted together.
func ValueCounts(col []table.Value) []Count {
	var out []Count
	idx := make(map[string]int)
	for _, v := range col {
		if v == nil {
			v = table.Null{}
		}
		id := countKey(v)
		if i, ok := idx[id]; ok {
			out[i].N++
			continue
		}
		idx[id] = len(out)
		out = append(out, Count{Value: v, Label: label(v), N: 1})
	}
	return out
}

func countKey(v table.Value) string {
	if f, ok := table.Number(v); ok {
		return "n:" + table.Float(f).String()
	}
	return v.Kind().String() + ":" + v.String()
}

func label(v table.Value) string {
	if table.IsNull(v) {
		return "null"
	}
	return v.String()
}

// Stats aggregates every registered column present in t. overrides replace
// or add aggregations by alias; an override whose alias is not registered
// must carry its own Long key. With shortNames the result is keyed by alias,
// otherwise by the key's domain/group/field form.
func Stats(t *table.Table, m *Map, overrides []Spec, shortNames bool) map[string]any {
	specs := m.Specs()
	for _, o := range overrides {
		replaced := false
		for i := range specs {
			if specs[i].Short == o.Short {
				if o.Long == (table.Key{}) {
					o.Long = specs[i].Long
				}
				specs[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			specs = append(specs, o)
		}
	}

	out := make(map[string]any, len(specs))
	for _, s := range specs {
		col, err := t.Column(s.Long)
		if err != nil {
			continue
		}
		name := s.Long.String()
		if shortNames && s.Short != "" {
			name = s.Short
		}
		out[name] = s.Aggregate(col)
	}
	return out
}
