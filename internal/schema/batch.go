package schema

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// BatchMode controls how a batch validation reacts to a failing table.
type BatchMode int

const (
	// BatchFailFast stops at the first table that fails to load or validate.
	BatchFailFast BatchMode = iota
	// BatchCollectAll validates every table and reports all failures.
	BatchCollectAll
)

// Item is one named table source in a batch. Load is called lazily so a
// fail-fast batch does not read tables it never reaches.
type Item struct {
	Name string
	Load func(ctx context.Context) (*table.Table, error)
}

// BatchResult is the outcome for one batch item.
type BatchResult struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Err  error  `json:"-"`
}

// OK reports whether the item loaded and validated.
func (r BatchResult) OK() bool {
	return r.Err == nil
}

// ValidateBatch validates every item against s. It returns the per-item
// results gathered so far and, if any item failed, an error naming it (fail
// fast) or joining all failures (collect all).
func (s *Schema) ValidateBatch(ctx context.Context, items []Item, mode BatchMode) ([]BatchResult, error) {
	var (
		results []BatchResult
		errs    []error
	)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := BatchResult{Name: it.Name}
		t, err := it.Load(ctx)
		if err == nil {
			res.Rows = t.Len()
			_, err = s.Validate(t)
		}
		if err != nil {
			res.Err = errors.Wrapf(err, "validate %s", it.Name)
			errs = append(errs, res.Err)
		}
		results = append(results, res)
		if err != nil && mode == BatchFailFast {
			return results, res.Err
		}
	}
	return results, errors.Join(errs...)
}
