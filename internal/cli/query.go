package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/query"
)

// QueryOptions holds flags shared by the query, portion and select commands.
type QueryOptions struct {
	*RootOptions
	Where []string // conditions, ANDed
	Given []string // portion only: conditions defining the reference set
}

// PortionResult is the JSON form of a portion.
type PortionResult struct {
	Query   string   `json:"query"`
	Given   string   `json:"given"`
	Match   int      `json:"match"`
	Total   int      `json:"total"`
	Fail    int      `json:"fail"`
	Percent *float64 `json:"percent"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <dataset|file.csv>...",
		Short: "Filter patients by conditions",
		Long: `Filter patients by conditions and print the matching rows as canonical CSV.

Conditions are given with --where and combined with AND. A condition names a
column by alias (age, hpv, t_stage) or by path (CT/ipsi/II) and compares it
with a literal:

  lydata query 2021-usz-oropharynx --where "age >= 50" --where "hpv == True"
  lydata query data.csv --where "t_stage in [3, 4]" --where "CT/ipsi/II not null"

Several inputs are stacked before filtering.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition rows must satisfy (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	pred, err := query.ParseConditions(opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}

	t, _, log, err := opts.loadJoined(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, inputCode(err), err)
	}

	out, err := query.Query(t, pred)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}
	log.Debugw("query evaluated",
		logger.FieldOperation, "query",
		"condition", pred.String(),
		logger.FieldRows, t.Len(),
		"matched", out.Len())
	formatter.VerboseLog("%s matched %d of %d row(s)", pred, out.Len(), t.Len())

	return formatter.Table(out, map[string]any{"query": pred.String(), "total": t.Len()})
}

// NewPortionCommand creates the portion command.
func NewPortionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "portion <dataset|file.csv>...",
		Short: "Count patients matching conditions among a reference set",
		Long: `Count the patients matching --where among those matching --given.

  lydata portion 2021-usz-oropharynx --where "CT/ipsi/II == True" --given "t_stage in [1, 2]"

Without --given every patient is in the reference set. A reference set with
no patients has an undefined ratio.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortion(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition to count (repeatable, ANDed)")
	cmd.Flags().StringArrayVarP(&opts.Given, "given", "g", nil, "condition defining the reference set (repeatable, ANDed)")

	return cmd
}

func runPortion(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	q, err := query.ParseConditions(opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}
	given, err := query.ParseConditions(opts.Given)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}

	t, _, _, err := opts.loadJoined(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, inputCode(err), err)
	}

	p, err := query.PortionOf(t, q, given)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCondition, err)
	}

	if formatter.JSON() {
		res := PortionResult{
			Query: q.String(),
			Given: given.String(),
			Match: p.Match,
			Total: p.Total,
			Fail:  p.Fail(),
		}
		if pct, ok := p.Percent(); ok {
			res.Percent = &pct
		}
		return formatter.Success(res)
	}

	fmt.Fprintf(formatter.Writer, "%s | %s: %s\n", q, given, p)
	return nil
}
