package harmony

import (
	"context"
	"fmt"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/annotate"
	"github.com/cognicore/cdeharmony/pkg/harmony/categorize"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/config"
	"github.com/cognicore/cdeharmony/pkg/harmony/embed"
	"github.com/cognicore/cdeharmony/pkg/harmony/grouping"
	"github.com/cognicore/cdeharmony/pkg/harmony/lexicon"
	"github.com/cognicore/cdeharmony/pkg/harmony/metrics"
	"github.com/cognicore/cdeharmony/pkg/harmony/similarity"
	"github.com/cognicore/cdeharmony/pkg/harmony/stoplist"
	"github.com/cognicore/cdeharmony/pkg/harmony/textnorm"
)

// NewNormalizer builds the label normalizer from the normalize section.
// The lexicon file extends the built-in English forms; the stoplist file
// replaces the built-in list.
func NewNormalizer(cfg config.NormalizeConfig) (*textnorm.Normalizer, *stoplist.Manager, error) {
	lex := lexicon.NewEnglish()
	if cfg.LexiconPath != "" {
		extra, err := lexicon.LoadFromYAML(cfg.LexiconPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load lexicon: %w", err)
		}
		lex.Merge(extra)
	}

	stops := stoplist.NewEnglish()
	if cfg.StoplistPath != "" {
		loaded, err := stoplist.LoadFromYAML(cfg.StoplistPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load stoplist: %w", err)
		}
		stops = loaded
	}
	for _, w := range cfg.ExtraStopwords {
		stops.Add(w)
	}

	norm := textnorm.New(textnorm.Options{
		Lemmatizer: textnorm.NewRuleLemmatizer(lex),
		Stoplist:   stops,
	})
	return norm, stops, nil
}

// RecordKey is the record identity used for analysis: the source
// dictionary plus the record id within it.
func RecordKey(cfg config.AnalyzeConfig) cde.KeyFunc {
	return cde.CompositeKey(cfg.SourceField, cfg.IDField)
}

// FromConfig builds every component named by cfg. Capabilities that cannot
// be initialized fail here, before any record is read.
func FromConfig(ctx context.Context, cfg *config.Config, log logging.Logger) (*Harmonizer, error) {
	log = logging.OrNop(log)

	norm, stops, err := NewNormalizer(cfg.Normalize)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(ctx, cfg.Embedding, norm)
	if err != nil {
		return nil, err
	}
	closers := []func() error{func() error { return embed.Close(embedder) }}
	fail := func(err error) (*Harmonizer, error) {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	deps := categorize.Deps{
		Stopwords: stops,
		Embedder:  embedder,
		Tokens:    norm.Tokens,
	}
	strategyName, err := categorize.ParseStrategy(cfg.Categorize.Strategy)
	if err != nil {
		return fail(err)
	}
	switch strategyName {
	case categorize.StrategyAnnotation:
		deps.Annotator = annotate.New(cfg.Annotation)
	case categorize.StrategyTaxonomy:
		if cfg.TaxonomyPath != "" {
			tax, err := categorize.LoadTaxonomy(cfg.TaxonomyPath)
			if err != nil {
				return fail(fmt.Errorf("load taxonomy: %w", err))
			}
			deps.Taxonomy = tax
		}
	}

	strategy, err := categorize.NewStrategy(categorize.StrategyConfig{
		Name:           strategyName,
		ScoreThreshold: cfg.Categorize.ScoreThreshold,
		TopN:           cfg.Categorize.TopN,
	}, deps)
	if err != nil {
		return fail(err)
	}

	key := RecordKey(cfg.Analyze)
	categorizer, err := categorize.New(categorize.Options{
		Strategy:   strategy,
		Normalizer: norm,
		Fields:     cfg.Categorize.Fields,
		FieldName:  cfg.Categorize.FieldName,
		Workers:    cfg.Categorize.Workers,
		Key:        key,
		Logger:     log,
	})
	if err != nil {
		return fail(err)
	}

	minSim := cfg.Analyze.MinSimilarity
	analyzer, err := similarity.New(similarity.Options{
		Scorer:        similarity.NewEmbeddingScorer(embedder),
		Key:           key,
		Fields:        cfg.Analyze.Fields,
		SourceField:   cfg.Analyze.SourceField,
		Separator:     cfg.Analyze.Separator,
		MinSimilarity: &minSim,
		Workers:       cfg.Analyze.Workers,
		Logger:        log,
	})
	if err != nil {
		return fail(err)
	}

	policy, err := grouping.ParsePolicy(cfg.Analyze.Policy)
	if err != nil {
		return fail(err)
	}

	var rec *metrics.Recorder
	if cfg.MetricsPath != "" {
		rec = metrics.New()
	}

	log.Info("pipeline ready",
		logging.String("strategy", strategy.Name()),
		logging.String("embedding", cfg.Embedding.Provider),
		logging.String("policy", string(policy)),
		logging.Float64("min_similarity", analyzer.Threshold()))

	return New(Options{
		Categorizer:       categorizer,
		Analyzer:          analyzer,
		Policy:            policy,
		LabelField:        cfg.Categorize.FieldName,
		Key:               key,
		ShortID:           cde.FieldKey(cfg.Analyze.IDField),
		MaxLabelDFPercent: cfg.Analyze.MaxLabelDFPercent,
		Metrics:           rec,
		Logger:            log,
		Closers:           closers,
	})
}
