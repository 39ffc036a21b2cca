package dataset

import (
	"io/fs"
	"os"
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// Filter selects datasets by glob patterns on each name part. Empty fields
// match anything.
type Filter struct {
	Year        string
	Institution string
	Subsite     string
}

func (f Filter) pattern() string {
	or := func(s string) string {
		if s == "" {
			return "*"
		}
		return s
	}
	return path.Join(or(f.Year)+"-"+or(f.Institution)+"-"+or(f.Subsite), FileName)
}

// Match reports whether d passes the filter.
func (f Filter) Match(d Descriptor) bool {
	ok, err := doublestar.Match(f.pattern(), path.Join(d.Name(), FileName))
	return err == nil && ok
}

// Discover lists the datasets found below root, sorted by name. Directories
// whose names do not parse as datasets are ignored.
func Discover(root string, f Filter) ([]Descriptor, error) {
	return DiscoverFS(os.DirFS(root), f)
}

// DiscoverFS is Discover over an fs.FS.
func DiscoverFS(fsys fs.FS, f Filter) ([]Descriptor, error) {
	pattern := f.pattern()
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Newf("invalid dataset filter %q", pattern)
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrap(err, "glob datasets")
	}
	var out []Descriptor
	for _, m := range matches {
		d, err := ParseName(path.Dir(m))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return out, nil
}
