package fusion

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lydata/internal/table"
)

// Method selects how per-modality likelihoods are aggregated.
type Method string

const (
	// MaxLLH multiplies likelihoods, so independent observations compound.
	MaxLLH Method = "max_llh"
	// Rank takes the largest likelihood, so the most trustworthy observation
	// decides.
	Rank Method = "rank"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MaxLLH, Rank:
		return m, nil
	}
	return "", errors.Newf("unknown combine method %q (want %s or %s)", s, MaxLLH, Rank)
}

// Fuse estimates the true state behind one set of observations. cfgs[i]
// describes the modality that produced obs[i]. Unknown observations are
// neutral: a factor of 1 for MaxLLH and 0 for Rank. Ties resolve to False.
func Fuse(obs []table.Tri, cfgs []ModalityConfig, method Method) table.Tri {
	healthy, involved := 1.0, 1.0
	if method == Rank {
		healthy, involved = 0, 0
	}
	for i, o := range obs {
		var h, v float64
		switch o {
		case table.True:
			h, v = 1-cfgs[i].Spec, cfgs[i].Sens
		case table.False:
			h, v = cfgs[i].Spec, 1-cfgs[i].Sens
		default:
			continue
		}
		if method == Rank {
			healthy, involved = max(healthy, h), max(involved, v)
		} else {
			healthy, involved = healthy*h, involved*v
		}
	}
	if involved > healthy {
		return table.True
	}
	return table.False
}

// sideLevel is a modality-independent diagnosis column.
type sideLevel struct {
	side, level string
}

// align collects the (side, level) columns of each modality, dropping the
// info group, in first-appearance order across modalities.
func align(t *table.Table, names []string) []sideLevel {
	var out []sideLevel
	seen := make(map[sideLevel]bool)
	for _, name := range names {
		for _, k := range t.KeysIn(name) {
			sl := sideLevel{k.Group, k.Field}
			if k.Group == "info" || seen[sl] {
				continue
			}
			seen[sl] = true
			out = append(out, sl)
		}
	}
	return out
}

// Combine fuses the diagnoses of every modality in mods that t contains.
// The result has one column per aligned (side, level), keyed
// {method, side, level}. A modality missing from t is skipped, and a
// (side, level) a modality lacks counts as unknown for it. Columns are
// computed concurrently.
func (e *Engine) Combine(ctx context.Context, t *table.Table, method Method) (*table.Table, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	mods := e.modalities()

	var (
		present []string
		cfgs    []ModalityConfig
	)
	domains := make(map[string]bool)
	for _, d := range t.Domains() {
		domains[d] = true
	}
	for _, name := range mods.Names() {
		if !domains[name] {
			e.logger().Debugw("modality not in table, skipping", "modality", name)
			continue
		}
		cfg, _ := mods.Get(name)
		present = append(present, name)
		cfgs = append(cfgs, cfg)
	}

	columns := align(t, present)
	results := make([][]table.Value, len(columns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sl := range columns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			col, err := fuseColumn(t, present, cfgs, sl, method)
			if err != nil {
				return err
			}
			results[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := table.New(t.Len())
	for i, sl := range columns {
		if err := out.Set(table.K(string(method), sl.side, sl.level), results[i]); err != nil {
			return nil, err
		}
	}
	e.logger().Debugw("combined diagnoses",
		"method", method,
		"modalities", present,
		"columns", len(columns))
	return out, nil
}

func fuseColumn(t *table.Table, names []string, cfgs []ModalityConfig, sl sideLevel, method Method) ([]table.Value, error) {
	stack := make([][]table.Tri, len(names))
	for j, name := range names {
		k := table.K(name, sl.side, sl.level)
		if !t.Has(k) {
			stack[j] = make([]table.Tri, t.Len())
			continue
		}
		col, err := t.Column(k)
		if err != nil {
			return nil, err
		}
		tris := make([]table.Tri, len(col))
		for r, v := range col {
			tri, ok := table.TriOf(v)
			if !ok {
				return nil, errors.Newf("%s row %d: %q is not a diagnosis", k, r, v.String())
			}
			tris[r] = tri
		}
		stack[j] = tris
	}

	out := make([]table.Value, t.Len())
	obs := make([]table.Tri, len(names))
	for r := range out {
		for j := range names {
			obs[j] = stack[j][r]
		}
		out[r] = Fuse(obs, cfgs, method).Value()
	}
	return out, nil
}
