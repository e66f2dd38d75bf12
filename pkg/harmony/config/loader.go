package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// CDEH_EMBEDDING_API_KEY or CDEH_ANALYZE_MIN_SIMILARITY.
const EnvPrefix = "CDEH"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can see it; values come
// from Default so the two never drift.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("categorize.strategy", d.Categorize.Strategy)
	v.SetDefault("categorize.fields", d.Categorize.Fields)
	v.SetDefault("categorize.field_name", d.Categorize.FieldName)
	v.SetDefault("categorize.score_threshold", d.Categorize.ScoreThreshold)
	v.SetDefault("categorize.top_n", d.Categorize.TopN)
	v.SetDefault("categorize.workers", d.Categorize.Workers)

	v.SetDefault("normalize.lexicon_path", "")
	v.SetDefault("normalize.stoplist_path", "")
	v.SetDefault("normalize.extra_stopwords", []string{})
	v.SetDefault("taxonomy_path", "")

	v.SetDefault("annotation.url", d.Annotation.URL)
	v.SetDefault("annotation.timeout", "15s")
	v.SetDefault("annotation.requests_per_second", 0)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.cache_size", 4096)
	v.SetDefault("embedding.dimensions", 0)

	v.SetDefault("analyze.fields", d.Analyze.Fields)
	v.SetDefault("analyze.policy", d.Analyze.Policy)
	v.SetDefault("analyze.min_similarity", d.Analyze.MinSimilarity)
	v.SetDefault("analyze.workers", 0)
	v.SetDefault("analyze.id_field", d.Analyze.IDField)
	v.SetDefault("analyze.source_field", d.Analyze.SourceField)
	v.SetDefault("analyze.separator", d.Analyze.Separator)
	v.SetDefault("analyze.max_label_df_percent", 0)

	v.SetDefault("io.delimiter", "")
	v.SetDefault("io.list_delimiter", "")
	v.SetDefault("io.dict_delimiters", "")
	v.SetDefault("io.list_fields", []string{})
	v.SetDefault("io.dict_fields", []string{})
	v.SetDefault("io.sheet", "")
	v.SetDefault("io.table", "")

	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("export.path", "")
	v.SetDefault("export.neo4j.uri", d.Export.Neo4j.URI)
	v.SetDefault("export.neo4j.username", d.Export.Neo4j.Username)
	v.SetDefault("export.neo4j.password", "")
	v.SetDefault("export.neo4j.database", "")
	v.SetDefault("export.neo4j.batch_size", 0)

	v.SetDefault("metrics_path", "")
}

// Load reads the YAML file at path, merges CDEH_* environment overrides,
// applies defaults and validates. An empty path loads defaults and env only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
		}
	}
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}
