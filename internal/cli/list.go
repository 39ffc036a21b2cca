package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lydata/internal/dataset"
	"github.com/roach88/lydata/internal/logger"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Filter   dataset.Filter
	Describe bool
}

// ListEntry is one discovered dataset.
type ListEntry struct {
	dataset.Descriptor
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the datasets in the data directory",
		Long: `List the datasets found in the data directory (data_dir in the config).

A dataset is a directory named {year}-{institution}-{subsite} holding a
data.csv. Each filter flag takes a glob pattern:

  lydata list --institution usz --subsite "oro*"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter.Year, "year", "", "year pattern")
	cmd.Flags().StringVar(&opts.Filter.Institution, "institution", "", "institution pattern")
	cmd.Flags().StringVar(&opts.Filter.Subsite, "subsite", "", "subsite pattern")
	cmd.Flags().BoolVar(&opts.Describe, "describe", false, "include the short description from each README")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, log, err := opts.setup(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	found, err := dataset.Discover(cfg.DataDir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	log.Debugw("discovered datasets", logger.FieldPath, cfg.DataDir, "count", len(found))

	l := opts.loader(cfg, log)
	entries := make([]ListEntry, 0, len(found))
	for _, d := range found {
		d = d.WithSource(cfg.Repo, cfg.Revision)
		e := ListEntry{Descriptor: d, Name: d.Name()}
		if opts.Describe {
			desc, err := l.Describe(cmd.Context(), d)
			if err != nil {
				log.Warnw("no description", logger.FieldDataset, d.Name(), "error", err)
			}
			e.Description = desc
		}
		entries = append(entries, e)
	}

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(formatter.Writer, "No datasets found in %s\n", cfg.DataDir)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(formatter.Writer, e.Name)
		if e.Description != "" {
			fmt.Fprintf(formatter.Writer, "  %s\n", oneLine(e.Description))
		}
	}
	return nil
}

// oneLine returns the first non-heading, non-empty line of a description.
func oneLine(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}
