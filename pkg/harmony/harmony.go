// Package harmony wires the harmonization pipeline: categorize records,
// group them by shared labels, score candidate pairs within each grouping,
// and merge accepted pairs transitively into related groups.
package harmony

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/categorize"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/grouping"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
	"github.com/cognicore/cdeharmony/pkg/harmony/labelstats"
	"github.com/cognicore/cdeharmony/pkg/harmony/merge"
	"github.com/cognicore/cdeharmony/pkg/harmony/metrics"
	"github.com/cognicore/cdeharmony/pkg/harmony/similarity"
)

// Harmonizer is the pipeline facade.
type Harmonizer struct {
	categorizer *categorize.Categorizer
	analyzer    *similarity.Analyzer
	policy      grouping.Policy
	labelField  string
	key         cde.KeyFunc
	shortID     cde.KeyFunc
	maxLabelDF  float64
	topLabels   int
	metrics     *metrics.Recorder
	log         logging.Logger
	closers     []func() error

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Harmonizer. Categorizer may be nil for analysis-only
// use and Analyzer may be nil for categorize-only use.
type Options struct {
	Categorizer *categorize.Categorizer
	Analyzer    *similarity.Analyzer
	Policy      grouping.Policy
	// LabelField is the list column grouped on. Default: categories.
	LabelField string
	// Key is the collision-free record identity. Required for analysis.
	Key cde.KeyFunc
	// ShortID names neighbors in the matches column.
	ShortID cde.KeyFunc
	// MaxLabelDFPercent prunes labels carried by more than this share of
	// records before grouping. 0 disables pruning.
	MaxLabelDFPercent float64
	// TopLabels is how many frequent labels the categorize summary logs.
	TopLabels int
	Metrics   *metrics.Recorder
	Logger    logging.Logger
	// Closers run on Close, in reverse order.
	Closers []func() error
}

// New creates a Harmonizer.
func New(opts Options) (*Harmonizer, error) {
	if opts.Analyzer != nil && opts.Key == nil {
		return nil, fmt.Errorf("%w: analysis needs a record key", internalerr.ErrInvalidConfig)
	}
	policy := opts.Policy
	if policy == "" {
		policy = grouping.Equivalence
	}
	if _, err := grouping.ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	h := &Harmonizer{
		categorizer: opts.Categorizer,
		analyzer:    opts.Analyzer,
		policy:      policy,
		labelField:  opts.LabelField,
		key:         opts.Key,
		shortID:     opts.ShortID,
		maxLabelDF:  opts.MaxLabelDFPercent,
		topLabels:   opts.TopLabels,
		metrics:     opts.Metrics,
		log:         logging.OrNop(opts.Logger).Named("harmony"),
		closers:     opts.Closers,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
	if h.labelField == "" {
		h.labelField = cde.FieldCategories
	}
	if h.topLabels == 0 {
		h.topLabels = 10
	}
	return h, nil
}

// Close releases provider clients.
func (h *Harmonizer) Close() error {
	var first error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	h.closers = nil
	return first
}

// Metrics returns the run metrics recorder, or nil.
func (h *Harmonizer) Metrics() *metrics.Recorder { return h.metrics }

func (h *Harmonizer) newRunID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ulid.MustNew(ulid.Now(), h.entropy).String()
}

// Categorize labels every record. See categorize.Categorizer.
func (h *Harmonizer) Categorize(ctx context.Context, records []cde.Record) (*categorize.Result, error) {
	return h.categorize(ctx, h.log.With(logging.String("run", h.newRunID())), records)
}

func (h *Harmonizer) categorize(ctx context.Context, log logging.Logger, records []cde.Record) (*categorize.Result, error) {
	if h.categorizer == nil {
		return nil, fmt.Errorf("%w: no categorizer configured", internalerr.ErrCapabilityUnavailable)
	}
	start := time.Now()
	res, err := h.categorizer.CategorizeCDE(ctx, records)
	if err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.Categorized(res)
		h.metrics.Stage("categorize", time.Since(start))
	}

	la := labelstats.NewAnalyzer()
	la.ProcessRecords(res.Records, h.labelField)
	for _, ls := range la.Snapshot().Top(h.topLabels) {
		log.Debug("frequent label",
			logging.String("label", ls.Label),
			logging.Int("records", int(ls.DF)),
			logging.Float64("percent", ls.DFPercent))
	}
	return res, nil
}

// Analysis is the outcome of grouping, scoring and merging.
type Analysis struct {
	RunID string
	// Pruned lists labels removed for exceeding the DF limit.
	Pruned    []string
	Groupings []cde.Grouping
	Scoring   *similarity.Result
	Groups    []merge.Group
	Graph     *merge.Graph
	// Records is one row per grouped record, with related_group and
	// matches set, in group order.
	Records []cde.Record
	Elapsed time.Duration
}

// Analyze groups categorized records, scores pairs within each grouping,
// and merges accepted pairs into related groups.
func (h *Harmonizer) Analyze(ctx context.Context, records []cde.Record) (*Analysis, error) {
	runID := h.newRunID()
	return h.analyze(ctx, runID, h.log.With(logging.String("run", runID)), records)
}

func (h *Harmonizer) analyze(ctx context.Context, runID string, log logging.Logger, records []cde.Record) (*Analysis, error) {
	if h.analyzer == nil {
		return nil, fmt.Errorf("%w: no similarity analyzer configured", internalerr.ErrCapabilityUnavailable)
	}
	if err := cde.ValidateKeys(records, h.key); err != nil {
		return nil, err
	}
	start := time.Now()
	out := &Analysis{RunID: runID}

	if h.maxLabelDF > 0 {
		la := labelstats.NewAnalyzer()
		la.ProcessRecords(records, h.labelField)
		out.Pruned = la.Snapshot().Frequent(h.maxLabelDF)
		if len(out.Pruned) > 0 {
			log.Info("pruning frequent labels",
				logging.Any("labels", out.Pruned),
				logging.Float64("max_df_percent", h.maxLabelDF))
			records = labelstats.Prune(records, h.labelField, out.Pruned)
		}
	}

	groupStart := time.Now()
	groupings, err := grouping.Finder{LabelField: h.labelField}.FindGroupings(records, h.policy)
	if err != nil {
		return nil, err
	}
	out.Groupings = groupings
	log.Info("groupings found",
		logging.String("policy", string(h.policy)),
		logging.Int("groupings", len(groupings)),
		logging.Duration("elapsed", time.Since(groupStart)))

	scoreStart := time.Now()
	scored, err := h.analyzer.Analyze(ctx, groupings)
	if err != nil {
		return nil, err
	}
	out.Scoring = scored

	mergeStart := time.Now()
	out.Groups, out.Graph = merge.Regroup(scored.Accepted, merge.Options{Key: h.key, ShortID: h.shortID})
	out.Records = merge.Flatten(out.Groups)
	log.Info("related groups merged",
		logging.Int("groups", len(out.Groups)),
		logging.Int("records", len(out.Records)),
		logging.Int("edges", len(out.Graph.Edges)))

	out.Elapsed = time.Since(start)
	if h.metrics != nil {
		h.metrics.Analyzed(scored.Stats)
		h.metrics.Groups(len(out.Groups))
		h.metrics.Stage("group", scoreStart.Sub(groupStart))
		h.metrics.Stage("score", mergeStart.Sub(scoreStart))
		h.metrics.Stage("merge", time.Since(mergeStart))
	}
	return out, nil
}

// RunResult holds both stages of a full run.
type RunResult struct {
	RunID       string
	Categorized *categorize.Result
	Analysis    *Analysis
}

// Run categorizes records and analyzes the result in one pass. Records that
// failed categorization carry no labels and so never group.
func (h *Harmonizer) Run(ctx context.Context, records []cde.Record) (*RunResult, error) {
	if len(records) == 0 {
		return nil, internalerr.ErrEmptyInput
	}
	runID := h.newRunID()
	log := h.log.With(logging.String("run", runID))
	log.Info("run started", logging.Int("records", len(records)))

	cat, err := h.categorize(ctx, log, records)
	if err != nil {
		return nil, err
	}
	an, err := h.analyze(ctx, runID, log, cat.Records)
	if err != nil {
		return nil, err
	}

	log.Info("run finished",
		logging.Int("categorized", cat.Categorized()),
		logging.Int("failed", len(cat.Failures)),
		logging.Int("accepted_pairs", len(an.Scoring.Accepted)),
		logging.Int("groups", len(an.Groups)),
		logging.Duration("elapsed", cat.Elapsed+an.Elapsed))
	return &RunResult{RunID: runID, Categorized: cat, Analysis: an}, nil
}
