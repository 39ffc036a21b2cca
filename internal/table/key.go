package table

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Key addresses a canonical column by its three header levels, e.g.
// (patient, #, age) or (CT, ipsi, II).
type Key struct {
	Domain string
	Group  string
	Field  string
}

// K is shorthand for constructing a Key.
func K(domain, group, field string) Key {
	return Key{Domain: domain, Group: group, Field: field}
}

// String renders the key as domain/group/field.
func (k Key) String() string {
	return k.Domain + "/" + k.Group + "/" + k.Field
}

// ParseKey parses the domain/group/field form produced by Key.String.
// Empty levels are rejected.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Key{}, errors.Newf("column key %q: want domain/group/field", s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Key{}, errors.Newf("column key %q: empty level", s)
		}
	}
	return K(parts[0], parts[1], parts[2]), nil
}
