// Package dataset names lydata datasets, discovers them on disk and loads
// them with a remote fallback.
package dataset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultRepo     = "rmnldwg/lydata"
	DefaultRevision = "main"
	// FileName is the canonical CSV inside each dataset directory.
	FileName = "data.csv"
)

var namePattern = regexp.MustCompile(`^(\d{4})-([a-z0-9]+)-([a-z0-9_]+)$`)

// Descriptor uniquely names a dataset.
type Descriptor struct {
	Year        int    `json:"year"`
	Institution string `json:"institution"`
	Subsite     string `json:"subsite"`
	Repo        string `json:"repo"`
	Revision    string `json:"revision"`
}

// New returns a validated descriptor with the default repo and revision.
// Institution and subsite are lower-cased.
func New(year int, institution, subsite string) (Descriptor, error) {
	d := Descriptor{
		Year:        year,
		Institution: strings.ToLower(institution),
		Subsite:     strings.ToLower(subsite),
		Repo:        DefaultRepo,
		Revision:    DefaultRevision,
	}
	return d, d.Validate()
}

// ParseName parses "{year}-{institution}-{subsite}".
func ParseName(name string) (Descriptor, error) {
	m := namePattern.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return Descriptor{}, errors.Newf("dataset name %q does not look like year-institution-subsite", name)
	}
	year, _ := strconv.Atoi(m[1])
	return New(year, m[2], m[3])
}

// Validate checks the release year and that every part is set.
func (d Descriptor) Validate() error {
	if d.Year <= 0 || d.Year > time.Now().Year() {
		return errors.Newf("dataset year %d is not a past release year", d.Year)
	}
	if d.Institution == "" || d.Subsite == "" {
		return errors.New("dataset institution and subsite must be set")
	}
	if d.Repo == "" || d.Revision == "" {
		return errors.New("dataset repo and revision must be set")
	}
	return nil
}

// WithSource returns d pointing at another repo or revision. Empty
// arguments keep the current value.
func (d Descriptor) WithSource(repo, revision string) Descriptor {
	if repo != "" {
		d.Repo = repo
	}
	if revision != "" {
		d.Revision = revision
	}
	return d
}

// Name is "{year}-{institution}-{subsite}".
func (d Descriptor) Name() string {
	return fmt.Sprintf("%d-%s-%s", d.Year, d.Institution, d.Subsite)
}

func (d Descriptor) String() string {
	return d.Name()
}

// Path is the dataset's CSV below root.
func (d Descriptor) Path(root string) string {
	return filepath.Join(root, d.Name(), FileName)
}

// URL is the raw download URL of the dataset's CSV in its repository.
func (d Descriptor) URL() string {
	return d.fileURL(FileName)
}

// ReadmeURL is the raw download URL of the dataset's README.md.
func (d Descriptor) ReadmeURL() string {
	return d.fileURL("README.md")
}

func (d Descriptor) fileURL(file string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", d.Repo, d.Revision, d.Name(), file)
}
