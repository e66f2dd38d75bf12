package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony"
	"github.com/cognicore/cdeharmony/pkg/harmony/config"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	workers    int
	verbose    bool
	quiet      bool

	cfg *config.Config
	log logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cdeharmony",
		Short: "CDE harmonization tools",
		Long: "Generate categorical groupings on CDE data dictionaries and find\n" +
			"semantically equivalent fields across dictionaries.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.log != nil {
				_ = a.log.Sync()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (env overrides use the CDEH_ prefix)")
	pf.IntVar(&a.workers, "workers", 0, "parallel workers for categorization and scoring (0 = number of CPUs)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "run in verbose mode, with debugging output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "run in quiet mode, only output errors")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newCategorizeCmd(a),
		newAnalyzeCmd(a),
		newRunCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Categorize.Workers = a.workers
		cfg.Analyze.Workers = a.workers
	}
	switch {
	case a.verbose:
		cfg.Log.Level = "debug"
	case a.quiet:
		cfg.Log.Level = "error"
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// harmonizer builds the pipeline after subcommand flags have been applied
// to a.cfg.
func (a *app) harmonizer(cmd *cobra.Command) (*harmony.Harmonizer, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return harmony.FromConfig(cmd.Context(), a.cfg, a.log)
}

// ioOptions returns the store options with the label column parsed as a
// list.
func (a *app) ioOptions() store.Options {
	opts := a.cfg.IO
	field := a.cfg.Categorize.FieldName
	if len(opts.ListFields) == 0 {
		opts.ListFields = store.DefaultOptions().ListFields
	}
	if !slices.Contains(opts.ListFields, field) {
		opts.ListFields = append(slices.Clone(opts.ListFields), field)
	}
	return opts
}

func (a *app) writeMetrics(h *harmony.Harmonizer) {
	if a.cfg.MetricsPath == "" || h.Metrics() == nil {
		return
	}
	if err := h.Metrics().WriteFile(a.cfg.MetricsPath); err != nil {
		a.log.Warn("metrics not written", logging.String("path", a.cfg.MetricsPath), logging.Err(err))
	}
}
