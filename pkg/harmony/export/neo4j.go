package export

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Neo4jConfig holds connection settings for PushNeo4j.
type Neo4jConfig struct {
	URI       string `mapstructure:"uri" yaml:"uri"`
	Username  string `mapstructure:"username" yaml:"username"`
	Password  string `mapstructure:"password" yaml:"password"`
	Database  string `mapstructure:"database" yaml:"database"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

const defaultBatchSize = 500

// tx is the slice of neo4j.ManagedTransaction the writer needs.
type tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// writer runs work inside one write transaction.
type writer interface {
	ExecuteWrite(ctx context.Context, work func(tx) error) error
	Close(ctx context.Context) error
}

type managedTx struct {
	tx neo4j.ManagedTransaction
}

func (t managedTx) Run(ctx context.Context, cypher string, params map[string]any) error {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

type driverWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

func (w *driverWriter) ExecuteWrite(ctx context.Context, work func(tx) error) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: w.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(t neo4j.ManagedTransaction) (any, error) {
		return nil, work(managedTx{tx: t})
	})
	return err
}

func (w *driverWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

func dialNeo4j(ctx context.Context, cfg Neo4jConfig) (writer, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: neo4j uri is empty", internalerr.ErrInvalidConfig)
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j: %v", internalerr.ErrCapabilityUnavailable, err)
	}

	db := cfg.Database
	if db == "" {
		db = "neo4j"
	}
	return &driverWriter{driver: driver, database: db}, nil
}

// PushNeo4j merges g into the database at cfg.URI. Field nodes are keyed by
// id, category nodes by name; edges become MATCHES or TAGS relationships.
func PushNeo4j(ctx context.Context, cfg Neo4jConfig, g Graph, log logging.Logger) error {
	w, err := dialNeo4j(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close(ctx)
	return pushGraph(ctx, w, g, cfg.BatchSize, logging.OrNop(log))
}

const (
	cypherFields = `UNWIND $rows AS row
MERGE (n:Field {key: row.id})
SET n.label = row.label, n += row.attrs`
	cypherCategories = `UNWIND $rows AS row
MERGE (n:Category {name: row.label})`
	cypherMatches = `UNWIND $rows AS row
MATCH (a:Field {key: row.source}), (b:Field {key: row.target})
MERGE (a)-[r:MATCHES]-(b)
SET r.score = row.score`
	cypherTags = `UNWIND $rows AS row
MATCH (c:Category {name: row.source}), (f:Field {key: row.target})
MERGE (c)-[:TAGS]->(f)`
)

func pushGraph(ctx context.Context, w writer, g Graph, batch int, log logging.Logger) error {
	if batch <= 0 {
		batch = defaultBatchSize
	}

	keyOf := make(map[string]string, len(g.Nodes))
	var fields, cats []map[string]any
	for _, n := range g.Nodes {
		attrs := make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		keyOf[n.ID] = n.Key
		switch n.Kind {
		case KindField:
			fields = append(fields, map[string]any{"id": n.Key, "label": n.Label, "attrs": attrs})
		case KindCategory:
			cats = append(cats, map[string]any{"label": n.Key})
		}
	}

	var matches, tags []map[string]any
	for _, e := range g.Edges {
		row := map[string]any{"source": keyOf[e.Source], "target": keyOf[e.Target], "score": e.Weight}
		switch e.Kind {
		case KindMatches:
			matches = append(matches, row)
		case KindTags:
			tags = append(tags, row)
		}
	}

	steps := []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"fields", cypherFields, fields},
		{"categories", cypherCategories, cats},
		{"matches", cypherMatches, matches},
		{"tags", cypherTags, tags},
	}
	for _, s := range steps {
		for start := 0; start < len(s.rows); start += batch {
			end := min(start+batch, len(s.rows))
			chunk := s.rows[start:end]
			err := w.ExecuteWrite(ctx, func(t tx) error {
				return t.Run(ctx, s.cypher, map[string]any{"rows": chunk})
			})
			if err != nil {
				return fmt.Errorf("neo4j write %s: %w", s.name, err)
			}
		}
		if len(s.rows) > 0 {
			log.Debug("neo4j batch written", logging.String("kind", s.name), logging.Int("rows", len(s.rows)))
		}
	}
	log.Info("graph pushed to neo4j",
		logging.Int("nodes", len(fields)+len(cats)),
		logging.Int("edges", len(matches)+len(tags)))
	return nil
}
