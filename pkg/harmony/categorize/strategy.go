package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/annotate"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/embed"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Strategy produces raw label candidates for one record. Candidates may be
// empty, duplicated or unnormalized; the Categorizer cleans them up.
// Implementations must be safe for concurrent use.
type Strategy interface {
	Name() string
	CategorizeFields(ctx context.Context, r cde.Record, fields []string) ([]string, error)
}

// Stopwords reports whether a lowercase token is a stopword.
type Stopwords interface {
	IsStop(token string) bool
}

// Strategy names accepted by NewStrategy. ParseStrategy also accepts the
// *_analyzer spellings as aliases.
const (
	StrategyRake       = "rake"
	StrategyKeyphrase  = "keyphrase"
	StrategyAnnotation = "annotation"
	StrategyTaxonomy   = "taxonomy"
	StrategyNoop       = "noop"
)

var strategyAliases = map[string]string{
	"rake":             StrategyRake,
	"rake_analyzer":    StrategyRake,
	"keyword":          StrategyRake,
	"keyphrase":        StrategyKeyphrase,
	"keybert":          StrategyKeyphrase,
	"keybert_analyzer": StrategyKeyphrase,
	"annotation":       StrategyAnnotation,
	"scigraph":         StrategyAnnotation,
	"concept_analyzer": StrategyAnnotation,
	"taxonomy":         StrategyTaxonomy,
	"noop":             StrategyNoop,
	"none":             StrategyNoop,
	"":                 StrategyNoop,
}

// ParseStrategy resolves a strategy name or alias.
func ParseStrategy(name string) (string, error) {
	canonical, ok := strategyAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnknownStrategy, name)
	}
	return canonical, nil
}

// Deps are the capabilities strategies may need. Only the ones required by
// the selected strategy must be set.
type Deps struct {
	Stopwords Stopwords
	Embedder  embed.Embedder
	Annotator annotate.Annotator
	Taxonomy  *Taxonomy
	Tokens    func(text string) []string
}

// StrategyConfig holds strategy tuning knobs.
type StrategyConfig struct {
	Name           string
	ScoreThreshold float64
	TopN           int
}

// NewStrategy builds the named strategy. Missing capabilities are reported
// here, before any record is processed.
func NewStrategy(cfg StrategyConfig, deps Deps) (Strategy, error) {
	name, err := ParseStrategy(cfg.Name)
	if err != nil {
		return nil, err
	}

	switch name {
	case StrategyRake:
		if deps.Stopwords == nil {
			return nil, fmt.Errorf("%w: rake needs a stopword list", internalerr.ErrCapabilityUnavailable)
		}
		return NewRake(deps.Stopwords), nil
	case StrategyKeyphrase:
		if deps.Embedder == nil || deps.Stopwords == nil {
			return nil, fmt.Errorf("%w: keyphrase needs an embedder and a stopword list", internalerr.ErrCapabilityUnavailable)
		}
		return NewKeyphrase(deps.Embedder, deps.Stopwords, cfg.ScoreThreshold, cfg.TopN), nil
	case StrategyAnnotation:
		if deps.Annotator == nil {
			return nil, fmt.Errorf("%w: annotation needs an annotator", internalerr.ErrCapabilityUnavailable)
		}
		return NewAnnotation(deps.Annotator), nil
	case StrategyTaxonomy:
		if deps.Taxonomy == nil || deps.Tokens == nil {
			return nil, fmt.Errorf("%w: taxonomy strategy needs a taxonomy file", internalerr.ErrInvalidConfig)
		}
		return NewTaxonomyStrategy(deps.Taxonomy, deps.Tokens), nil
	default:
		return Noop{}, nil
	}
}

// Noop never labels anything.
type Noop struct{}

func (Noop) Name() string { return StrategyNoop }

func (Noop) CategorizeFields(context.Context, cde.Record, []string) ([]string, error) {
	return nil, nil
}

// Annotation labels a record with entity ids from an annotation service.
type Annotation struct {
	annotator annotate.Annotator
}

func NewAnnotation(a annotate.Annotator) *Annotation {
	return &Annotation{annotator: a}
}

func (a *Annotation) Name() string { return StrategyAnnotation }

func (a *Annotation) CategorizeFields(ctx context.Context, r cde.Record, fields []string) ([]string, error) {
	text := r.Text(fields, ". ")
	if text == "" {
		return nil, nil
	}
	return a.annotator.Annotate(ctx, text)
}
