package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/export"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		toNeo4j    bool
		categories bool
		attrs      []string
	)
	cmd := &cobra.Command{
		Use:   "export <input_file> [graph_path]",
		Short: "Export the match graph of an analysis (or the category graph) for visualization",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			table, err := store.Load(ctx, args[0], a.ioOptions())
			if err != nil {
				return err
			}

			key := harmony.RecordKey(cfg.Analyze)
			var g export.Graph
			if categories {
				g = export.CategoryGraph(table.Records, key, cfg.Categorize.FieldName)
			} else {
				if len(attrs) == 0 {
					attrs = []string{cfg.Analyze.SourceField}
				}
				g = export.MatchGraph(table.Records, export.MatchOptions{
					Key:        key,
					ShortID:    cde.FieldKey(cfg.Analyze.IDField),
					Attributes: attrs,
				})
			}

			if toNeo4j {
				return export.PushNeo4j(ctx, cfg.Export.Neo4j, g, a.log)
			}

			path := cfg.Export.Path
			if len(args) == 2 {
				path = args[1]
			}
			if path == "" {
				return fmt.Errorf("no graph path: pass one or set export.path")
			}
			if err := export.WriteFile(path, g); err != nil {
				return err
			}
			a.log.Info("graph written",
				logging.String("path", path),
				logging.Int("nodes", len(g.Nodes)),
				logging.Int("edges", len(g.Edges)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&toNeo4j, "neo4j", false, "push the graph to Neo4j (export.neo4j settings) instead of writing a file")
	cmd.Flags().BoolVar(&categories, "categories", false, "export the category -> field graph of a categorized file")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "column copied onto graph nodes (repeatable)")
	return cmd
}
