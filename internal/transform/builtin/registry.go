// Package builtin provides the named transform funcs and exclusion checks
// that mapping files refer to by name.
package builtin

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/transform"
)

// CheckFactory builds an exclusion check from its kwargs.
type CheckFactory func(kw transform.Kwargs) (transform.ColumnCheck, error)

// Registry resolves func and check names.
type Registry struct {
	funcs  map[string]transform.Func
	checks map[string]CheckFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs:  make(map[string]transform.Func),
		checks: make(map[string]CheckFactory),
	}
}

// Default returns a fresh registry holding every builtin.
func Default() *Registry {
	r := NewRegistry()
	for name, fn := range map[string]transform.Func{
		"string":          toString,
		"robust_int":      robustInt,
		"robust_float":    robustFloat,
		"robust_date":     robustDate,
		"strip_letters":   stripLetters,
		"category":        category,
		"nonzero":         nonzero,
		"parse_pathology": parsePathology,
		"map_values":      mapValues,
		"icd_subsite":     icdSubsite,
		"sum":             sum,
		"first_non_null":  firstNonNull,
		"fold_text":       foldText,
	} {
		r.RegisterFunc(name, fn)
	}
	for name, f := range map[string]CheckFactory{
		"is_null":         isNull,
		"not_null":        notNull,
		"equals":          equals,
		"not_in":          notIn,
		"present_and_not": presentAndNot,
	} {
		r.RegisterCheck(name, f)
	}
	return r
}

// RegisterFunc adds or replaces a named func.
func (r *Registry) RegisterFunc(name string, fn transform.Func) {
	r.funcs[name] = fn
}

// RegisterCheck adds or replaces a named exclusion check.
func (r *Registry) RegisterCheck(name string, f CheckFactory) {
	r.checks[name] = f
}

// Func looks up a func by name.
func (r *Registry) Func(name string) (transform.Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Check builds the named exclusion check.
func (r *Registry) Check(name string, kw transform.Kwargs) (transform.ColumnCheck, error) {
	f, ok := r.checks[name]
	if !ok {
		return nil, errors.Newf("unknown exclusion check %q", name)
	}
	return f(kw)
}

// FuncNames lists the registered func names, sorted.
func (r *Registry) FuncNames() []string {
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
