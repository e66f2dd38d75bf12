package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

func newRunCmd(a *app) *cobra.Command {
	cat := &categorizeFlags{}
	an := &analyzeFlags{}
	var categorizedPath string

	cmd := &cobra.Command{
		Use:   "run <cde_file> <output_path>",
		Short: "Categorize and analyze in one pass",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat.fields = an.fields
			cat.apply(cmd, a)
			an.apply(cmd, a)

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

			res, err := h.Run(ctx, table.Records)
			if err != nil {
				return err
			}
			if categorizedPath != "" {
				out := cde.Table{Columns: table.Columns, Records: res.Categorized.Records}
				if err := store.Save(ctx, categorizedPath, out, opts); err != nil {
					return err
				}
				a.log.Info("categorized dictionary written", logging.String("path", categorizedPath))
			}
			if err := a.saveAnalysis(cmd, args[1], table.Columns, res.Analysis); err != nil {
				return err
			}
			a.writeMetrics(h)
			return nil
		},
	}

	// -f is shared: the same columns feed categorization and comparison.
	cmd.Flags().StringVarP(&cat.strategy, "categorizer", "c", "", "categorization algorithm")
	cmd.Flags().Float64VarP(&cat.threshold, "score_threshold", "s", 0, "minimum category score")
	an.register(cmd)
	cmd.Flags().StringVar(&categorizedPath, "categorized", "", "also write the categorized dictionary here")
	return cmd
}
