package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/lydata/internal/config"
	"github.com/roach88/lydata/internal/dataset"
	"github.com/roach88/lydata/internal/query"
	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/store"
)

// StoreOptions holds flags shared by the commands that use the database.
type StoreOptions struct {
	*RootOptions
	Database string
}

func (o *StoreOptions) open(cfg *config.Config, log *zap.SugaredLogger) (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = cfg.Database
	}
	s, err := store.Open(path, store.WithLogger(log))
	if err != nil {
		return nil, errors.WithHint(err, "set database in the config, LYDATA_DATABASE or --db")
	}
	return s, nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	StoreOptions
	Name     string
	Replace  bool
	Validate bool
}

// ImportResult is the outcome of importing one input.
type ImportResult struct {
	store.Dataset
	Created bool `json:"created"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "import <dataset|file.csv>...",
		Short: "Store canonical tables in the database",
		Long: `Store canonical tables in the SQLite database for later selection.

Each input is stored under its dataset name (or --name for a single
input). Importing identical content under the same name again is a no-op.
With --replace every earlier import of the name is deleted first.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name to store a single input under")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "delete earlier imports of the same name")
	cmd.Flags().BoolVar(&opts.Validate, "validate", true, "validate against the schema before storing")

	return cmd
}

func runImport(opts *ImportOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Name != "" && len(args) > 1 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, errors.New("--name needs exactly one input"))
	}

	items, cfg, log, err := opts.inputs(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, inputCode(err), err)
	}
	s, err := opts.open(cfg, log)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer s.Close()

	sch := schema.Construct(schema.DefaultModalityNames(), nil)
	ctx := cmd.Context()
	results := make([]ImportResult, 0, len(items))
	for _, it := range items {
		t, err := it.Load(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, inputCode(err), err)
		}
		if opts.Validate {
			if t, err = sch.Validate(t); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeSchema, errors.Wrapf(err, "import %s", it.Name))
			}
		}

		name := storeName(it.Name)
		if opts.Name != "" {
			name = opts.Name
		}
		if opts.Replace {
			if _, err := s.DeleteDataset(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
				return formatter.Fail(ExitFailure, ErrCodeStore, err)
			}
		}
		rec, created, err := s.SaveDataset(ctx, name, t)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, err)
		}
		results = append(results, ImportResult{Dataset: rec, Created: created})
	}

	if formatter.JSON() {
		return formatter.Success(results)
	}
	for _, r := range results {
		if r.Created {
			fmt.Fprintf(formatter.Writer, "✓ Imported %s (%d rows, seq %d)\n", r.Name, r.Rows, r.Seq)
		} else {
			fmt.Fprintf(formatter.Writer, "= %s unchanged (seq %d)\n", r.Name, r.Seq)
		}
	}
	return nil
}

// storeName is the name an input is stored under: the dataset name, the
// directory of a data.csv, or the file name without extension.
func storeName(input string) string {
	if _, err := dataset.ParseName(input); err == nil {
		return input
	}
	base := filepath.Base(input)
	if base == dataset.FileName {
		return filepath.Base(filepath.Dir(input))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	StoreOptions
	Where []string
	List  bool
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "select [name]",
		Short: "Select rows of a stored dataset with SQL",
		Long: `Select the rows of the latest import of a stored dataset.

Conditions use the same syntax as query and are evaluated by the database:

  lydata select 2021-usz-oropharynx --where "age >= 50"

With --list the stored imports are listed instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path (default from config)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition rows must satisfy (repeatable)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored imports")

	return cmd
}

func runSelect(opts *SelectOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if !opts.List && len(args) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, errors.New("select needs a dataset name or --list"))
	}

	pred, err := query.ParseConditions(opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}
	cfg, log, err := opts.setup(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	s, err := opts.open(cfg, log)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer s.Close()

	if opts.List {
		all, err := s.ListDatasets(cmd.Context())
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, err)
		}
		if formatter.JSON() {
			return formatter.Success(all)
		}
		for _, d := range all {
			fmt.Fprintf(formatter.Writer, "%d\t%s\t%d rows\t%s\n", d.Seq, d.Name, d.Rows, d.Fingerprint)
		}
		return nil
	}

	out, err := s.SelectRows(cmd.Context(), args[0], pred, nil)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	case err != nil:
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}
	formatter.VerboseLog("%s matched %d row(s) in %s", pred, out.Len(), args[0])
	return formatter.Table(out, map[string]any{"dataset": args[0], "query": pred.String()})
}
