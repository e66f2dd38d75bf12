package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

type categorizeFlags struct {
	strategy  string
	fields    []string
	threshold float64
}

func (f *categorizeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.strategy, "categorizer", "c", "",
		"categorization algorithm: rake_analyzer, keybert_analyzer, concept_analyzer, taxonomy, noop")
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil,
		"column used by the categorization algorithm (repeatable, default description)")
	cmd.Flags().Float64VarP(&f.threshold, "score_threshold", "s", 0,
		"minimum category score (scale depends on the categorizer)")
}

func (f *categorizeFlags) apply(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("categorizer") {
		a.cfg.Categorize.Strategy = f.strategy
	}
	if cmd.Flags().Changed("field") {
		a.cfg.Categorize.Fields = dedupe(f.fields)
	}
	if cmd.Flags().Changed("score_threshold") {
		a.cfg.Categorize.ScoreThreshold = f.threshold
	}
}

func newCategorizeCmd(a *app) *cobra.Command {
	flags := &categorizeFlags{}
	cmd := &cobra.Command{
		Use:   "categorize <cde_file> <output_path>",
		Short: "Generate categorical groupings on CDE data dictionaries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, a)

			h, err := a.harmonizer(cmd)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx := cmd.Context()
			opts := a.ioOptions()
			table, err := store.Load(ctx, args[0], opts)
			if err != nil {
				return err
			}
			a.log.Info("dictionary loaded", logging.String("path", args[0]), logging.Int("records", len(table.Records)))

			res, err := h.Categorize(ctx, table.Records)
			if err != nil {
				return err
			}

			out := cde.Table{Columns: table.Columns, Records: res.Records}
			if err := store.Save(ctx, args[1], out, opts); err != nil {
				return err
			}
			a.log.Info("categorized dictionary written",
				logging.String("path", args[1]),
				logging.Int("categorized", res.Categorized()),
				logging.Int("failed", len(res.Failures)),
				logging.Duration("elapsed", res.Elapsed.Round(time.Millisecond)))
			a.writeMetrics(h)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
