package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/lydata/internal/config"
	"github.com/roach88/lydata/internal/dataset"
	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/table"
)

// inputs resolves table arguments. An argument naming an existing file is
// read as canonical CSV; otherwise it must be a dataset name such as
// 2021-usz-oropharynx, loaded from the data directory or the remote
// repository.
func (o *RootOptions) inputs(cmd *cobra.Command, args []string) ([]schema.Item, *config.Config, *zap.SugaredLogger, error) {
	cfg, log, err := o.setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	l := o.loader(cfg, log)

	items := make([]schema.Item, 0, len(args))
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			items = append(items, schema.Item{Name: arg, Load: csvLoader(arg, log)})
			continue
		}
		d, err := dataset.ParseName(arg)
		if err != nil {
			return nil, nil, nil, errors.WithHint(
				errors.Wrapf(os.ErrNotExist, "input %q is neither a file nor a dataset name", arg),
				"dataset names look like {year}-{institution}-{subsite}; see 'lydata list'",
			)
		}
		d = d.WithSource(cfg.Repo, cfg.Revision)
		items = append(items, schema.Item{
			Name: d.Name(),
			Load: func(ctx context.Context) (*table.Table, error) { return l.Load(ctx, d) },
		})
	}
	return items, cfg, log, nil
}

func csvLoader(path string, log *zap.SugaredLogger) func(context.Context) (*table.Table, error) {
	return func(context.Context) (*table.Table, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open input")
		}
		defer f.Close()
		t, err := table.ReadCSV(f)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		log.Debugw("read canonical table", logger.FieldPath, path, logger.FieldRows, t.Len())
		return t, nil
	}
}

// loadJoined loads every input and stacks them row-wise.
func (o *RootOptions) loadJoined(cmd *cobra.Command, args []string) (*table.Table, *config.Config, *zap.SugaredLogger, error) {
	items, cfg, log, err := o.inputs(cmd, args)
	if err != nil {
		return nil, nil, nil, err
	}
	tables := make([]*table.Table, 0, len(items))
	for _, it := range items {
		t, err := it.Load(cmd.Context())
		if err != nil {
			return nil, nil, nil, err
		}
		tables = append(tables, t)
	}
	return table.Concat(tables...), cfg, log, nil
}

// inputCode picks the CLI error code for an input failure.
func inputCode(err error) string {
	switch {
	case errors.Is(err, errConfig):
		return ErrCodeConfig
	case errors.Is(err, os.ErrNotExist), errors.Is(err, dataset.ErrFetch):
		return ErrCodeNotFound
	}
	return ErrCodeReadFailed
}

// writeFile writes to path through a temp file in the same directory.
func writeFile(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "write output")
}
