package cli

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/lydata/internal/compiler"
	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
	"github.com/roach88/lydata/internal/transform/builtin"
)

// TransformOptions holds flags for the transform command.
type TransformOptions struct {
	*RootOptions
	Mapping string // mapping file (.cue, .yaml)
	Output  string // output file path
}

// TransformResult summarizes a transform run.
type TransformResult struct {
	Input       string `json:"input"`
	Output      string `json:"output,omitempty"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	Fingerprint string `json:"fingerprint"`
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transform <raw.csv>",
		Short: "Transform a raw institutional table into the canonical format",
		Long: `Transform a raw CSV export into the canonical three-level format.

The mapping file (CUE or YAML) declares how every destination column is
computed from the raw columns, and which rows to exclude. Without --output
the canonical CSV is written to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mapping, "mapping", "m", "", "mapping file (.cue, .yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func runTransform(opts *TransformOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	_, log, err := opts.setup(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	mf, err := compiler.LoadMappingFile(opts.Mapping, builtin.Default())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeMapping, err)
	}
	formatter.VerboseLog("Loaded mapping %s with %d column(s)", opts.Mapping, len(mf.Mapping.Targets()))

	f, err := os.Open(input)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, errors.Wrap(err, "open raw table"))
	}
	raw, err := transform.ReadRawCSV(f, mf.HeaderRows)
	f.Close()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err)
	}

	out, err := transform.Transform(raw, mf.Mapping, mf.Exclude)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeTransform, err)
	}
	log.Infow("transformed raw table",
		logger.FieldPath, input,
		"raw_rows", raw.Len(),
		logger.FieldRows, out.Len(),
		logger.FieldColumns, out.Width())

	fp, err := table.Fingerprint(out)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeTransform, err)
	}
	result := TransformResult{
		Input:       input,
		Output:      opts.Output,
		Rows:        out.Len(),
		Columns:     out.Width(),
		Fingerprint: fp,
	}

	if opts.Output == "" {
		return formatter.Table(out, map[string]any{"fingerprint": fp})
	}
	if err := writeFile(opts.Output, func(f *os.File) error { return table.WriteCSV(f, out) }); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %d row(s), %d column(s) to %s\n", result.Rows, result.Columns, result.Output)
	return nil
}
