package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

type analyzeFlags struct {
	fields      []string
	policy      string
	minSim      float64
	idField     string
	sourceField string
	maxLabelDF  float64
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil,
		"column used for semantic comparison (repeatable, default description)")
	cmd.Flags().StringVarP(&f.policy, "policy", "p", "", "grouping policy: equivalence or intersection")
	cmd.Flags().Float64VarP(&f.minSim, "min_similarity", "m", 0, "minimum similarity for a pair to match (default 0.5)")
	cmd.Flags().StringVar(&f.idField, "id-field", "", "column naming a field within its dictionary (default variable_name)")
	cmd.Flags().StringVar(&f.sourceField, "source-field", "", "column naming the source dictionary (default source_directory)")
	cmd.Flags().Float64Var(&f.maxLabelDF, "max-label-df", 0, "drop labels carried by more than this percent of records before grouping")
}

func (f *analyzeFlags) apply(cmd *cobra.Command, a *app) {
	fl := cmd.Flags()
	if fl.Changed("field") {
		a.cfg.Analyze.Fields = dedupe(f.fields)
	}
	if fl.Changed("policy") {
		a.cfg.Analyze.Policy = f.policy
	}
	if fl.Changed("min_similarity") {
		a.cfg.Analyze.MinSimilarity = f.minSim
	}
	if fl.Changed("id-field") {
		a.cfg.Analyze.IDField = f.idField
	}
	if fl.Changed("source-field") {
		a.cfg.Analyze.SourceField = f.sourceField
	}
	if fl.Changed("max-label-df") {
		a.cfg.Analyze.MaxLabelDFPercent = f.maxLabelDF
	}
}

func newAnalyzeCmd(a *app) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <cde_file> <output_path>",
		Short: "Perform semantic analysis on categorically-grouped CDE questions",
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

			an, err := h.Analyze(ctx, table.Records)
			if err != nil {
				return err
			}
			if err := a.saveAnalysis(cmd, args[1], table.Columns, an); err != nil {
				return err
			}
			a.writeMetrics(h)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) saveAnalysis(cmd *cobra.Command, path string, columns []string, an *harmony.Analysis) error {
	out := cde.Table{Columns: columns, Records: an.Records}
	if err := store.Save(cmd.Context(), path, out, a.ioOptions()); err != nil {
		return err
	}
	s := an.Scoring.Stats
	a.log.Info("analysis written",
		logging.String("path", path),
		logging.Int("groups", len(an.Groups)),
		logging.Int("records", len(an.Records)),
		logging.Int("accepted", s.Accepted),
		logging.Int("rejected", s.Rejected),
		logging.Int("skipped_same_source", s.SkippedSameSource),
		logging.Int("failed", s.Failed))
	return nil
}
