// Package similarity scores record pairs inside candidate groupings and
// keeps the pairs similar enough to be harmonization candidates.
package similarity

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
	"github.com/cognicore/cdeharmony/pkg/harmony/workpool"
)

const (
	DefaultMinSimilarity = 0.5
	DefaultSeparator     = " | "
)

// Options configures an Analyzer.
type Options struct {
	Scorer Scorer
	// Key identifies records; pairs are deduplicated by key. Required.
	Key cde.KeyFunc
	// Fields are concatenated into the comparison text. Default: description.
	Fields []string
	// SourceField holds the dictionary a record came from. Default:
	// source_directory. Records with an empty source never count as same
	// source.
	SourceField string
	Separator   string
	// MinSimilarity is the acceptance threshold. Nil means 0.5; zero
	// accepts every scored pair.
	MinSimilarity *float64
	Workers       int
	Logger        logging.Logger
}

// Analyzer scores every eligible pair within each grouping.
type Analyzer struct {
	scorer    Scorer
	key       cde.KeyFunc
	fields    []string
	source    string
	sep       string
	threshold float64
	workers   int
	log       logging.Logger
}

// Failure is a pair whose scoring failed.
type Failure struct {
	A, B string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("pair %s ~ %s: %v", f.A, f.B, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Stats counts what happened to candidate pairs.
type Stats struct {
	Groupings         int
	Candidates        int
	Duplicates        int
	SkippedSameSource int
	SkippedEmptyText  int
	Scored            int
	Accepted          int
	Rejected          int
	Failed            int
}

// Result holds accepted pairs in enumeration order.
type Result struct {
	Accepted []cde.Pair
	Failures []Failure
	Stats    Stats
	Elapsed  time.Duration
}

// New validates options and creates an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if opts.Scorer == nil {
		return nil, fmt.Errorf("%w: analyzer needs a similarity scorer", internalerr.ErrCapabilityUnavailable)
	}
	if opts.Key == nil {
		return nil, fmt.Errorf("%w: analyzer needs a record key", internalerr.ErrInvalidConfig)
	}
	threshold := DefaultMinSimilarity
	if opts.MinSimilarity != nil {
		threshold = *opts.MinSimilarity
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: min similarity %v outside [0,1]", internalerr.ErrInvalidConfig, threshold)
	}
	a := &Analyzer{
		scorer:    opts.Scorer,
		key:       opts.Key,
		fields:    opts.Fields,
		source:    opts.SourceField,
		sep:       opts.Separator,
		threshold: threshold,
		workers:   workpool.Workers(opts.Workers),
		log:       logging.OrNop(opts.Logger).Named("similarity"),
	}
	if len(a.fields) == 0 {
		a.fields = []string{cde.FieldDescription}
	}
	if a.source == "" {
		a.source = cde.FieldSourceDirectory
	}
	if a.sep == "" {
		a.sep = DefaultSeparator
	}
	return a, nil
}

// Threshold returns the acceptance threshold in use.
func (a *Analyzer) Threshold() float64 { return a.threshold }

type job struct {
	a, b         cde.Record
	keyA, keyB   string
	textA, textB string
}

// Analyze enumerates every unordered pair within each grouping, skips
// same-source and empty-text pairs, scores the rest and keeps those at or
// above the threshold. A pair shared by several groupings is scored once.
// Scoring failures are logged and dropped; the only error returned is
// context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, groupings []cde.Grouping) (*Result, error) {
	start := time.Now()
	res := &Result{}
	res.Stats.Groupings = len(groupings)

	jobs := a.enumerate(groupings, &res.Stats)
	a.log.Info("scoring pairs",
		logging.Int("groupings", len(groupings)),
		logging.Int("pairs", len(jobs)),
		logging.Int("skipped_same_source", res.Stats.SkippedSameSource),
		logging.Int("skipped_empty_text", res.Stats.SkippedEmptyText),
		logging.Int("workers", a.workers))

	results, err := workpool.Map(ctx, a.workers, jobs, func(ctx context.Context, _ int, j job) (float64, error) {
		return a.score(ctx, j)
	})
	if err != nil {
		return nil, err
	}

	for i, r := range results {
		j := jobs[i]
		if r.Err != nil {
			f := Failure{A: cde.ShortKey(j.keyA), B: cde.ShortKey(j.keyB), Err: r.Err}
			res.Failures = append(res.Failures, f)
			res.Stats.Failed++
			a.log.Error("failed to score pair", logging.String("a", f.A), logging.String("b", f.B), logging.Err(r.Err))
			continue
		}
		res.Stats.Scored++
		if r.Value >= a.threshold {
			res.Stats.Accepted++
			res.Accepted = append(res.Accepted, cde.Pair{A: j.a, B: j.b, Score: r.Value})
		} else {
			res.Stats.Rejected++
		}
		a.log.Debug(fmt.Sprintf("[%d/%d] scored pair", i+1, len(jobs)),
			logging.String("a", cde.ShortKey(j.keyA)),
			logging.String("b", cde.ShortKey(j.keyB)),
			logging.Float64("score", r.Value),
			logging.Int("accepted", res.Stats.Accepted),
			logging.Int("rejected", res.Stats.Rejected))
	}
	res.Elapsed = time.Since(start)

	a.log.Info("pair analysis finished",
		logging.Int("scored", res.Stats.Scored),
		logging.Int("accepted", res.Stats.Accepted),
		logging.Int("rejected", res.Stats.Rejected),
		logging.Int("failed", res.Stats.Failed),
		logging.Int("skipped_same_source", res.Stats.SkippedSameSource),
		logging.Float64("threshold", a.threshold),
		logging.Duration("elapsed", res.Elapsed))

	return res, nil
}

// score runs the scorer on one pair. A panicking scorer counts as a
// failure of this pair only.
func (a *Analyzer) score(ctx context.Context, j job) (score float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			score, err = 0, fmt.Errorf("scorer panicked: %v", p)
		}
	}()

	score, err = a.scorer.Similarity(ctx, j.textA, j.textB)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("score %v outside [0,1]", score)
	}
	return score, nil
}

func (a *Analyzer) enumerate(groupings []cde.Grouping, stats *Stats) []job {
	seen := make(map[[2]string]bool)
	var jobs []job

	for _, g := range groupings {
		for i := 0; i < len(g.Members); i++ {
			for j := i + 1; j < len(g.Members); j++ {
				stats.Candidates++
				ra, rb := g.Members[i], g.Members[j]
				ka, kb := a.key(ra), a.key(rb)
				if ka == kb {
					// the same record listed twice is not a pair
					stats.Duplicates++
					continue
				}
				pk := [2]string{ka, kb}
				if kb < ka {
					pk = [2]string{kb, ka}
				}
				if seen[pk] {
					stats.Duplicates++
					continue
				}
				seen[pk] = true

				if a.sameSource(ra, rb) {
					stats.SkippedSameSource++
					continue
				}
				ta, tb := ra.Text(a.fields, a.sep), rb.Text(a.fields, a.sep)
				if ta == "" || tb == "" {
					stats.SkippedEmptyText++
					continue
				}
				jobs = append(jobs, job{a: ra, b: rb, keyA: ka, keyB: kb, textA: ta, textB: tb})
			}
		}
	}
	return jobs
}

func (a *Analyzer) sameSource(ra, rb cde.Record) bool {
	sa, sb := ra.Get(a.source), rb.Get(a.source)
	return sa != "" && sa == sb
}
