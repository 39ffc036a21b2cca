package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/lydata/internal/config"
	"github.com/roach88/lydata/internal/dataset"
	"github.com/roach88/lydata/internal/fusion"
	"github.com/roach88/lydata/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg *config.Config
	log *zap.SugaredLogger
}

// errConfig marks configuration failures so they map to ErrCodeConfig.
var errConfig = errors.New("configuration error")

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lydata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lydata",
		Short: "lydata - lymphatic involvement datasets",
		Long: `Tools for curated datasets of lymphatic tumor spread in head and neck cancer.

Transform raw institutional tables into the canonical three-level format,
validate them, filter and measure cohorts, and fuse diagnostic modalities
into a single best estimate of nodal involvement.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: invalid format %q: must be one of %v\n", opts.Format, ValidFormats)
				return NewExitError(ExitCommandError, "invalid format "+opts.Format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: ./lydata.yaml)")

	cmd.AddCommand(NewTransformCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewPortionCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewCombineCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))

	return cmd
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// setup loads configuration and builds the logger once per run. Logs go
// to stderr; --verbose lowers the level to debug.
func (o *RootOptions) setup(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	if o.cfg != nil {
		return o.cfg, o.log, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, errors.Mark(err, errConfig)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	log, err := logger.New(cmd.ErrOrStderr(), level, cfg.LogJSON)
	if err != nil {
		return nil, nil, errors.Mark(err, errConfig)
	}
	o.cfg, o.log = cfg, log
	return cfg, log, nil
}

// loader returns a dataset loader configured from cfg.
func (o *RootOptions) loader(cfg *config.Config, log *zap.SugaredLogger) *dataset.Loader {
	return &dataset.Loader{
		Root:     cfg.DataDir,
		Fetcher:  dataset.GetterFetcher{},
		SkipDisk: cfg.SkipDisk,
		Logger:   log,
	}
}

// modalities returns the configured modality table.
func (o *RootOptions) modalities(cfg *config.Config) (*fusion.Modalities, error) {
	if cfg.ModalitiesFile == "" {
		return fusion.DefaultModalities(), nil
	}
	mods, err := fusion.LoadModalities(cfg.ModalitiesFile)
	if err != nil {
		return nil, errors.Mark(errors.WithHint(err, "check modalities_file in the config or LYDATA_MODALITIES_FILE"), errConfig)
	}
	return mods, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
