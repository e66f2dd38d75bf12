// Package config holds the harmonization run settings: one YAML document
// with env overrides (CDEH_<SECTION>_<KEY>), defaults, and validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/annotate"
	"github.com/cognicore/cdeharmony/pkg/harmony/categorize"
	"github.com/cognicore/cdeharmony/pkg/harmony/embed"
	"github.com/cognicore/cdeharmony/pkg/harmony/export"
	"github.com/cognicore/cdeharmony/pkg/harmony/grouping"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
	"github.com/cognicore/cdeharmony/pkg/harmony/store"
)

// Config is the full run configuration.
type Config struct {
	Log          logging.Config   `mapstructure:"log" yaml:"log"`
	Categorize   CategorizeConfig `mapstructure:"categorize" yaml:"categorize"`
	Normalize    NormalizeConfig  `mapstructure:"normalize" yaml:"normalize"`
	TaxonomyPath string           `mapstructure:"taxonomy_path" yaml:"taxonomy_path"`
	Annotation   annotate.Config  `mapstructure:"annotation" yaml:"annotation"`
	Embedding    embed.Config     `mapstructure:"embedding" yaml:"embedding"`
	Analyze      AnalyzeConfig    `mapstructure:"analyze" yaml:"analyze"`
	IO           store.Options    `mapstructure:"io" yaml:"io"`
	Export       ExportConfig     `mapstructure:"export" yaml:"export"`
	MetricsPath  string           `mapstructure:"metrics_path" yaml:"metrics_path"`
}

// CategorizeConfig selects and tunes the categorization strategy.
type CategorizeConfig struct {
	Strategy       string   `mapstructure:"strategy" yaml:"strategy"`
	Fields         []string `mapstructure:"fields" yaml:"fields"`
	FieldName      string   `mapstructure:"field_name" yaml:"field_name"`
	ScoreThreshold float64  `mapstructure:"score_threshold" yaml:"score_threshold"`
	TopN           int      `mapstructure:"top_n" yaml:"top_n"`
	Workers        int      `mapstructure:"workers" yaml:"workers"`
}

// NormalizeConfig points at optional vocabulary files.
type NormalizeConfig struct {
	LexiconPath    string   `mapstructure:"lexicon_path" yaml:"lexicon_path"`
	StoplistPath   string   `mapstructure:"stoplist_path" yaml:"stoplist_path"`
	ExtraStopwords []string `mapstructure:"extra_stopwords" yaml:"extra_stopwords"`
}

// AnalyzeConfig tunes grouping, scoring and merging.
type AnalyzeConfig struct {
	Fields        []string `mapstructure:"fields" yaml:"fields"`
	Policy        string   `mapstructure:"policy" yaml:"policy"`
	MinSimilarity float64  `mapstructure:"min_similarity" yaml:"min_similarity"`
	Workers       int      `mapstructure:"workers" yaml:"workers"`
	// IDField names each record within its dictionary and is used as the
	// short id in the matches column.
	IDField     string `mapstructure:"id_field" yaml:"id_field"`
	SourceField string `mapstructure:"source_field" yaml:"source_field"`
	Separator   string `mapstructure:"separator" yaml:"separator"`
	// MaxLabelDFPercent drops labels carried by more than this share of
	// the batch before grouping. 0 disables pruning.
	MaxLabelDFPercent float64 `mapstructure:"max_label_df_percent" yaml:"max_label_df_percent"`
}

// ExportConfig controls graph export.
type ExportConfig struct {
	Format string             `mapstructure:"format" yaml:"format"`
	Path   string             `mapstructure:"path" yaml:"path"`
	Neo4j  export.Neo4jConfig `mapstructure:"neo4j" yaml:"neo4j"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{Analyze: AnalyzeConfig{MinSimilarity: 0.5}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Categorize.Strategy == "" {
		cfg.Categorize.Strategy = categorize.StrategyRake
	}
	if len(cfg.Categorize.Fields) == 0 {
		cfg.Categorize.Fields = []string{"description"}
	}
	if cfg.Categorize.FieldName == "" {
		cfg.Categorize.FieldName = "categories"
	}
	if cfg.Categorize.TopN == 0 {
		cfg.Categorize.TopN = 5
	}

	if cfg.Annotation.URL == "" {
		cfg.Annotation.URL = annotate.DefaultURL
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = embed.ProviderHashing
	}

	if len(cfg.Analyze.Fields) == 0 {
		cfg.Analyze.Fields = []string{"description"}
	}
	if cfg.Analyze.Policy == "" {
		cfg.Analyze.Policy = string(grouping.Equivalence)
	}
	if cfg.Analyze.IDField == "" {
		cfg.Analyze.IDField = "variable_name"
	}
	if cfg.Analyze.SourceField == "" {
		cfg.Analyze.SourceField = "source_directory"
	}
	if cfg.Analyze.Separator == "" {
		cfg.Analyze.Separator = " | "
	}

	if cfg.Export.Format == "" {
		cfg.Export.Format = "gexf"
	}
	if cfg.Export.Neo4j.URI == "" {
		cfg.Export.Neo4j.URI = "neo4j://localhost:7687"
	}
	if cfg.Export.Neo4j.Username == "" {
		cfg.Export.Neo4j.Username = "neo4j"
	}
}

// Validate reports every problem at once, each wrapping ErrInvalidConfig
// or a more specific sentinel.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{internalerr.ErrInvalidConfig}, args...)...))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		invalid("log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		invalid("log.format %q", c.Log.Format)
	}

	if _, err := categorize.ParseStrategy(c.Categorize.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Categorize.ScoreThreshold < 0 || c.Categorize.ScoreThreshold > 1 {
		invalid("categorize.score_threshold %v outside [0,1]", c.Categorize.ScoreThreshold)
	}
	if c.Categorize.Workers < 0 {
		invalid("categorize.workers must not be negative")
	}
	if c.Categorize.TopN < 0 {
		invalid("categorize.top_n must not be negative")
	}

	if c.Annotation.Timeout < 0 {
		invalid("annotation.timeout must not be negative")
	}
	if c.Annotation.RequestsPerSecond < 0 {
		invalid("annotation.requests_per_second must not be negative")
	}

	switch c.Embedding.Provider {
	case "", embed.ProviderHashing, embed.ProviderOpenAI, embed.ProviderOllama, embed.ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("%w: embedding provider %q", internalerr.ErrUnknownStrategy, c.Embedding.Provider))
	}
	if c.Embedding.CacheSize < 0 {
		invalid("embedding.cache_size must not be negative")
	}

	if _, err := grouping.ParsePolicy(c.Analyze.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Analyze.MinSimilarity < 0 || c.Analyze.MinSimilarity > 1 {
		invalid("analyze.min_similarity %v outside [0,1]", c.Analyze.MinSimilarity)
	}
	if c.Analyze.Workers < 0 {
		invalid("analyze.workers must not be negative")
	}
	if c.Analyze.MaxLabelDFPercent < 0 || c.Analyze.MaxLabelDFPercent > 100 {
		invalid("analyze.max_label_df_percent %v outside [0,100]", c.Analyze.MaxLabelDFPercent)
	}
	if strings.TrimSpace(c.Analyze.IDField) == "" {
		invalid("analyze.id_field is required")
	}

	if err := c.IO.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Export.Format {
	case "", "gexf", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: export format %q", internalerr.ErrUnsupportedFormat, c.Export.Format))
	}

	return errors.Join(errs...)
}
