package transform

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
)

// Kwargs holds the keyword arguments of a mapping instruction.
type Kwargs map[string]any

// Has reports whether key is set.
func (k Kwargs) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// String returns key as a string, or def when absent.
func (k Kwargs) String(key, def string) (string, error) {
	v, ok := k[key]
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	return s, errors.Wrapf(err, "kwarg %q", key)
}

// Int returns key as an int, or def when absent.
func (k Kwargs) Int(key string, def int) (int, error) {
	v, ok := k[key]
	if !ok {
		return def, nil
	}
	i, err := cast.ToIntE(v)
	return i, errors.Wrapf(err, "kwarg %q", key)
}

// Float returns key as a float64, or def when absent.
func (k Kwargs) Float(key string, def float64) (float64, error) {
	v, ok := k[key]
	if !ok {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	return f, errors.Wrapf(err, "kwarg %q", key)
}

// Strings returns key as a string list, or def when absent.
func (k Kwargs) Strings(key string, def []string) ([]string, error) {
	v, ok := k[key]
	if !ok {
		return def, nil
	}
	ss, err := cast.ToStringSliceE(v)
	return ss, errors.Wrapf(err, "kwarg %q", key)
}

// Map returns key as a string-keyed map, or nil when absent.
func (k Kwargs) Map(key string) (map[string]any, error) {
	v, ok := k[key]
	if !ok {
		return nil, nil
	}
	m, err := cast.ToStringMapE(v)
	return m, errors.Wrapf(err, "kwarg %q", key)
}
