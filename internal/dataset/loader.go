package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/table"
)

// ErrFetch marks a failed remote download. It is terminal: there is no
// further fallback.
var ErrFetch = errors.New("remote fetch failed")

// Loader reads datasets from Root and falls back to Fetcher when the local
// copy is missing or unreadable.
type Loader struct {
	Root     string
	Fetcher  Fetcher // nil disables the remote fallback
	SkipDisk bool
	Logger   *zap.SugaredLogger
	// Parallel bounds concurrent loads in LoadAll; zero means 4.
	Parallel int
}

func (l *Loader) log() *zap.SugaredLogger {
	if l.Logger == nil {
		return logger.Nop()
	}
	return l.Logger
}

// Load returns the canonical table of d.
func (l *Loader) Load(ctx context.Context, d Descriptor) (*table.Table, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if !l.SkipDisk {
		t, err := readFile(d.Path(l.Root))
		if err == nil {
			l.log().Debugw("loaded dataset from disk",
				logger.FieldDataset, d.Name(),
				logger.FieldPath, d.Path(l.Root),
				logger.FieldRows, t.Len())
			return t, nil
		}
		if l.Fetcher == nil {
			return nil, errors.Wrapf(err, "load %s", d)
		}
		l.log().Infow("local dataset unavailable, fetching",
			logger.FieldDataset, d.Name(),
			"reason", err.Error())
	}
	if l.Fetcher == nil {
		return nil, errors.Newf("load %s: disk skipped and no fetcher configured", d)
	}
	return l.fetch(ctx, d)
}

func (l *Loader) fetch(ctx context.Context, d Descriptor) (*table.Table, error) {
	dir, err := os.MkdirTemp("", "lydata-"+d.Name()+"-*")
	if err != nil {
		return nil, errors.Wrap(err, "create download directory")
	}
	defer os.RemoveAll(dir)

	start := time.Now()
	dst := filepath.Join(dir, FileName)
	if err := l.Fetcher.Fetch(ctx, d.URL(), dst); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "load %s", d), ErrFetch)
	}
	t, err := readFile(dst)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "load %s from %s", d, d.URL()), ErrFetch)
	}
	l.log().Infow("fetched dataset",
		logger.FieldDataset, d.Name(),
		logger.FieldURL, d.URL(),
		logger.FieldRows, t.Len(),
		logger.FieldDuration, time.Since(start).Milliseconds())
	return t, nil
}

func readFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "dataset file %s", path)
		}
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()
	return table.ReadCSV(f)
}

// LoadAll loads every descriptor concurrently and returns the tables in
// input order. The first failure cancels the rest.
func (l *Loader) LoadAll(ctx context.Context, ds []Descriptor) ([]*table.Table, error) {
	out := make([]*table.Table, len(ds))
	g, ctx := errgroup.WithContext(ctx)
	limit := l.Parallel
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, d := range ds {
		g.Go(func() error {
			t, err := l.Load(ctx, d)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Join loads every descriptor and stacks the tables row-wise. Columns a
// dataset lacks are null for its rows.
func (l *Loader) Join(ctx context.Context, ds []Descriptor) (*table.Table, error) {
	tables, err := l.LoadAll(ctx, ds)
	if err != nil {
		return nil, err
	}
	return table.Concat(tables...), nil
}

// ValidateAll validates each dataset against s, loading lazily so that a
// fail-fast batch stops reading at the first failure.
func ValidateAll(ctx context.Context, l *Loader, ds []Descriptor, s *schema.Schema, mode schema.BatchMode) ([]schema.BatchResult, error) {
	items := make([]schema.Item, len(ds))
	for i, d := range ds {
		items[i] = schema.Item{
			Name: d.Name(),
			Load: func(ctx context.Context) (*table.Table, error) {
				return l.Load(ctx, d)
			},
		}
	}
	results, err := s.ValidateBatch(ctx, items, mode)
	for _, r := range results {
		if r.OK() {
			l.log().Infow("schema validation passed", logger.FieldDataset, r.Name, logger.FieldRows, r.Rows)
		} else {
			l.log().Errorw("schema validation failed", logger.FieldDataset, r.Name, "error", r.Err)
		}
	}
	return results, err
}
