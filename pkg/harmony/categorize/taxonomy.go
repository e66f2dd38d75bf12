package categorize

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Taxonomy maps category names to keyword lists. Keywords may span several
// words; they match when their normalized tokens appear contiguously.
type Taxonomy struct {
	categories map[string][]string
}

// TaxonomyFile is the YAML layout:
//
//	categories:
//	  cardiovascular: [heart, blood pressure, pulse]
type TaxonomyFile struct {
	Categories map[string][]string `yaml:"categories"`
}

func NewTaxonomy() *Taxonomy {
	return &Taxonomy{categories: make(map[string][]string)}
}

// LoadTaxonomy reads a taxonomy YAML file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var file TaxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	t := NewTaxonomy()
	for name, keywords := range file.Categories {
		t.AddCategory(name, keywords)
	}
	return t, nil
}

// AddCategory adds or replaces a category.
func (t *Taxonomy) AddCategory(name string, keywords []string) {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}
	t.categories[name] = normalized
}

// Categories returns the category names, sorted.
func (t *Taxonomy) Categories() []string {
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaxonomyStrategy labels a record with every category that has a keyword
// in the record's text. tokens must be the same normalization applied to
// keywords, so plural keywords still match singular text.
type TaxonomyStrategy struct {
	tax    *Taxonomy
	tokens func(string) []string
	// keyword -> normalized token sequence, computed once
	compiled map[string][][]string
}

func NewTaxonomyStrategy(tax *Taxonomy, tokens func(string) []string) *TaxonomyStrategy {
	s := &TaxonomyStrategy{tax: tax, tokens: tokens, compiled: make(map[string][][]string)}
	for name, keywords := range tax.categories {
		for _, kw := range keywords {
			if seq := tokens(kw); len(seq) > 0 {
				s.compiled[name] = append(s.compiled[name], seq)
			}
		}
	}
	return s
}

func (s *TaxonomyStrategy) Name() string { return StrategyTaxonomy }

func (s *TaxonomyStrategy) CategorizeFields(_ context.Context, r cde.Record, fields []string) ([]string, error) {
	toks := s.tokens(r.Text(fields, ". "))
	if len(toks) == 0 {
		return nil, nil
	}

	var cats []string
	for _, name := range s.tax.Categories() {
		for _, seq := range s.compiled[name] {
			if containsSeq(toks, seq) {
				cats = append(cats, name)
				break
			}
		}
	}
	return cats, nil
}

func containsSeq(toks, seq []string) bool {
	for i := 0; i+len(seq) <= len(toks); i++ {
		match := true
		for j := range seq {
			if toks[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
