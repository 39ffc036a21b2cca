package dataset

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Describe returns the short description of d: its README.md up to the
// first subheading. The README next to the local CSV is preferred; without
// one it is fetched from the repository.
func (l *Loader) Describe(ctx context.Context, d Descriptor) (string, error) {
	local := filepath.Join(l.Root, d.Name(), "README.md")
	data, err := os.ReadFile(local)
	if err == nil {
		return ShortDescription(string(data)), nil
	}
	if l.Fetcher == nil {
		return "", errors.Wrapf(err, "describe %s", d)
	}

	dir, err := os.MkdirTemp("", "lydata-readme-*")
	if err != nil {
		return "", errors.Wrap(err, "create download directory")
	}
	defer os.RemoveAll(dir)
	dst := filepath.Join(dir, "README.md")
	if err := l.Fetcher.Fetch(ctx, d.ReadmeURL(), dst); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "describe %s", d), ErrFetch)
	}
	data, err = os.ReadFile(dst)
	if err != nil {
		return "", errors.Wrap(err, "read fetched readme")
	}
	return ShortDescription(string(data)), nil
}

// ShortDescription keeps a markdown document up to its first heading below
// the top level. Fenced code blocks are not scanned for headings.
func ShortDescription(md string) string {
	var (
		out    []string
		fenced bool
	)
	sc := bufio.NewScanner(strings.NewReader(md))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			fenced = !fenced
		}
		if !fenced && headingLevel(trimmed) > 1 {
			break
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// headingLevel returns the ATX heading level of line, or 0.
func headingLevel(line string) int {
	rest := strings.TrimLeft(line, "#")
	level := len(line) - len(rest)
	if level == 0 || level > 6 || (rest != "" && rest[0] != ' ') {
		return 0
	}
	return level
}
