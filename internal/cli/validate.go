package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/lydata/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Modalities []string
	CollectAll bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool            `json:"valid"`
	Results []DatasetResult `json:"results"`
}

// DatasetResult is the validation outcome of one input.
type DatasetResult struct {
	Name       string             `json:"name"`
	Rows       int                `json:"rows"`
	Valid      bool               `json:"valid"`
	Error      string             `json:"error,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <dataset|file.csv>...",
		Short: "Validate canonical tables against the lydata schema",
		Long: `Validate canonical tables against the lydata schema.

Every input is checked for required columns, cell types and value checks
on patient, tumor and modality columns. All violations of a table are
reported together. By default validation stops at the first failing
input; --collect-all validates every input.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Modalities, "modality", schema.DefaultModalityNames(), "modalities whose columns are checked")
	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "validate every input instead of stopping at the first failure")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	items, _, log, err := opts.inputs(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, inputCode(err), err)
	}

	mode := schema.BatchFailFast
	if opts.CollectAll {
		mode = schema.BatchCollectAll
	}
	s := schema.Construct(opts.Modalities, nil)
	formatter.VerboseLog("Validating %d input(s) against %d column contract(s)", len(items), len(s.Columns()))

	results, batchErr := s.ValidateBatch(cmd.Context(), items, mode)

	out := ValidationResult{Valid: batchErr == nil}
	for _, r := range results {
		dr := DatasetResult{Name: r.Name, Rows: r.Rows, Valid: r.OK()}
		if !r.OK() {
			dr.Error = r.Err.Error()
			dr.Violations = violationsOf(r.Err)
			log.Errorw("schema validation failed", "input", r.Name, "violations", len(dr.Violations))
		}
		out.Results = append(out.Results, dr)
	}

	if batchErr != nil && len(results) == 0 {
		return formatter.Fail(ExitCommandError, inputCode(batchErr), batchErr)
	}

	if formatter.JSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		printValidation(formatter, out)
	}

	if !out.Valid {
		return WrapExitError(ExitFailure, fmt.Sprintf("validation failed for %d input(s)", countInvalid(out)), batchErr)
	}
	return nil
}

func printValidation(f *OutputFormatter, out ValidationResult) {
	for _, r := range out.Results {
		if r.Valid {
			fmt.Fprintf(f.Writer, "✓ %s (%d rows)\n", r.Name, r.Rows)
			continue
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", r.Name)
		if len(r.Violations) == 0 {
			fmt.Fprintf(f.Writer, "  %s\n", r.Error)
			continue
		}
		for _, v := range r.Violations {
			fmt.Fprintf(f.Writer, "  %s\n", v)
		}
	}
}

func countInvalid(out ValidationResult) int {
	n := 0
	for _, r := range out.Results {
		if !r.Valid {
			n++
		}
	}
	return n
}

// violationsOf returns the schema violations carried by err, if any.
func violationsOf(err error) []schema.Violation {
	var se *schema.SchemaError
	if errors.As(err, &se) {
		return se.Violations
	}
	return nil
}
