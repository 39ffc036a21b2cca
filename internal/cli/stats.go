package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/lydata/internal/colmap"
	"github.com/roach88/lydata/internal/query"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Where     []string
	LongNames bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <dataset|file.csv>...",
		Short: "Summarize the standard patient and tumor columns",
		Long: `Count the values of the standard patient and tumor columns (age, hpv,
t_stage, ...). Columns missing from the input are skipped. --where restricts
the summary to matching patients.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition rows must satisfy (repeatable)")
	cmd.Flags().BoolVar(&opts.LongNames, "long-names", false, "key results by domain/group/field instead of alias")

	return cmd
}

func runStats(opts *StatsOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	pred, err := query.ParseConditions(opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}
	t, _, _, err := opts.loadJoined(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, inputCode(err), err)
	}
	t, err = query.Query(t, pred)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}

	stats := colmap.Stats(t, colmap.Default(), nil, !opts.LongNames)
	if formatter.JSON() {
		return formatter.Success(map[string]any{"rows": t.Len(), "columns": stats})
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(formatter.Writer, "%d patient(s)\n", t.Len())
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "%s:\n", name)
		counts, ok := stats[name].([]colmap.Count)
		if !ok {
			fmt.Fprintf(formatter.Writer, "  %v\n", stats[name])
			continue
		}
		for _, c := range counts {
			fmt.Fprintf(formatter.Writer, "  %-8s %d\n", c.Label, c.N)
		}
	}
	return nil
}
