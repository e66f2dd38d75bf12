// Package categorize tags each record with a normalized label set derived
// from its text by a pluggable strategy.
package categorize

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/cdeharmony/internal/logging"
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
	"github.com/cognicore/cdeharmony/pkg/harmony/textnorm"
	"github.com/cognicore/cdeharmony/pkg/harmony/workpool"
)

// Normalizer canonicalizes a label candidate. "" means no usable label.
type Normalizer interface {
	Normalize(text string) string
}

// Options configures a Categorizer.
type Options struct {
	Strategy   Strategy
	Normalizer Normalizer
	// Fields are the columns whose text is categorized. Default: description.
	Fields []string
	// FieldName is the list column labels are written to. Default: categories.
	FieldName string
	// Workers bounds parallel strategy calls; <= 0 means host parallelism.
	Workers int
	// Key identifies records in logs and failures. Optional.
	Key    cde.KeyFunc
	Logger logging.Logger
}

// Categorizer runs a strategy over a batch of records.
type Categorizer struct {
	strategy  Strategy
	norm      Normalizer
	fields    []string
	fieldName string
	workers   int
	key       cde.KeyFunc
	log       logging.Logger
}

// Failure is one record that could not be categorized.
type Failure struct {
	Index int
	ID    string
	Err   error
}

func (f Failure) Error() string {
	if f.ID != "" {
		return fmt.Sprintf("record %d (%s): %v", f.Index, f.ID, f.Err)
	}
	return fmt.Sprintf("record %d: %v", f.Index, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result is the categorized batch. Records has the same length and order
// as the input; a failed record has no label field at all.
type Result struct {
	Records      []cde.Record
	Failures     []Failure
	ZeroCategory []int
	Elapsed      time.Duration
}

// Categorized counts records that received a label field.
func (r *Result) Categorized() int {
	return len(r.Records) - len(r.Failures)
}

// New validates options and creates a Categorizer.
func New(opts Options) (*Categorizer, error) {
	if opts.Strategy == nil {
		return nil, fmt.Errorf("%w: categorizer needs a strategy", internalerr.ErrInvalidConfig)
	}
	c := &Categorizer{
		strategy:  opts.Strategy,
		norm:      opts.Normalizer,
		fields:    opts.Fields,
		fieldName: opts.FieldName,
		workers:   workpool.Workers(opts.Workers),
		key:       opts.Key,
		log:       logging.OrNop(opts.Logger).Named("categorize"),
	}
	if c.norm == nil {
		c.norm = textnorm.New(textnorm.Options{})
	}
	if len(c.fields) == 0 {
		c.fields = []string{cde.FieldDescription}
	}
	if c.fieldName == "" {
		c.fieldName = cde.FieldCategories
	}
	return c, nil
}

// Fields returns the columns being categorized.
func (c *Categorizer) Fields() []string { return c.fields }

// CategorizeCDE labels a deep copy of records. Per-record failures are
// logged and returned in the result; the only error returned is context
// cancellation.
func (c *Categorizer) CategorizeCDE(ctx context.Context, records []cde.Record) (*Result, error) {
	start := time.Now()
	rows := cde.CloneAll(records)
	total := len(rows)

	c.log.Info("categorizing records",
		logging.String("strategy", c.strategy.Name()),
		logging.Any("fields", c.fields),
		logging.Int("records", total),
		logging.Int("workers", c.workers))

	results, err := workpool.Map(ctx, c.workers, rows, func(ctx context.Context, _ int, row cde.Record) ([]string, error) {
		return c.categorizeOne(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Records: rows}
	for i, r := range results {
		id := c.id(rows[i])
		if r.Err != nil {
			rows[i].DeleteList(c.fieldName)
			res.Failures = append(res.Failures, Failure{Index: i, ID: id, Err: r.Err})
			c.log.Error(fmt.Sprintf("[%d/%d] failed to categorize record", i+1, total),
				logging.String("id", id), logging.Err(r.Err))
			continue
		}
		rows[i].SetList(c.fieldName, r.Value)
		if len(r.Value) == 0 {
			res.ZeroCategory = append(res.ZeroCategory, i)
		}
		c.log.Debug(fmt.Sprintf("[%d/%d] categorized record", i+1, total),
			logging.String("id", id), logging.Any("categories", r.Value))
	}
	res.Elapsed = time.Since(start)

	if len(res.ZeroCategory) > 0 {
		ids := make([]string, 0, len(res.ZeroCategory))
		for _, i := range res.ZeroCategory {
			ids = append(ids, c.label(i, rows[i]))
		}
		c.log.Warn("records without categories",
			logging.Int("count", len(res.ZeroCategory)), logging.Any("records", ids))
	}
	if len(res.Failures) > 0 {
		c.log.Error(fmt.Sprintf("encountered %d categorization errors", len(res.Failures)))
	}
	c.log.Info("categorization finished",
		logging.Int("processed", total),
		logging.Int("categorized", res.Categorized()),
		logging.Int("failed", len(res.Failures)),
		logging.Int("zero_category", len(res.ZeroCategory)),
		logging.Duration("elapsed", res.Elapsed))

	return res, nil
}

// categorizeOne runs the strategy and turns its candidates into a
// deduplicated label set without empty labels. A panicking strategy counts
// as a failure of this record only.
func (c *Categorizer) categorizeOne(ctx context.Context, row cde.Record) (labels []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			labels, err = nil, fmt.Errorf("strategy %s panicked: %v", c.strategy.Name(), p)
		}
	}()

	candidates, err := c.strategy.CategorizeFields(ctx, row, c.fields)
	if err != nil {
		return nil, err
	}
	return c.NormalizeLabels(candidates), nil
}

// NormalizeLabels normalizes candidates, drops empty labels and removes
// duplicates, keeping first-seen order.
func (c *Categorizer) NormalizeLabels(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	labels := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		label := c.norm.Normalize(cand)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

func (c *Categorizer) id(r cde.Record) string {
	if c.key == nil {
		return ""
	}
	return cde.ShortKey(c.key(r))
}

func (c *Categorizer) label(i int, r cde.Record) string {
	if id := c.id(r); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", i)
}
