// Package lexicon maps word forms onto a canonical form. The lemmatizer
// consults it before applying suffix rules, so irregular plurals and words
// that only look plural are resolved here.
package lexicon

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores canonical forms and the variants that map onto them.
// A canonical form always maps to itself.
type Lexicon struct {
	// canonical -> variants, canonical first
	forms map[string][]string
	// variant -> canonical
	reverse map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:   make(map[string][]string),
		reverse: make(map[string]string),
	}
}

// LoadFromYAML loads form groups from a YAML file:
//
//	forms:
//	  - canonical: mouse
//	    variants: [mice]
//	  - canonical: diabetes
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Forms []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"forms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range doc.Forms {
		if strings.TrimSpace(entry.Canonical) == "" {
			continue
		}
		lex.Add(entry.Canonical, entry.Variants...)
	}
	return lex, nil
}

// Add registers canonical and its variants. Re-adding a canonical replaces
// its previous variants.
func (l *Lexicon) Add(canonical string, variants ...string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))

	if old, exists := l.forms[canonical]; exists {
		for _, v := range old {
			delete(l.reverse, v)
		}
	}

	group := []string{canonical}
	seen := map[string]bool{canonical: true}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		group = append(group, v)
	}

	l.forms[canonical] = group
	for _, v := range group {
		l.reverse[v] = canonical
	}
}

// Merge copies every group of other into l, replacing groups with the same
// canonical form.
func (l *Lexicon) Merge(other *Lexicon) {
	if other == nil {
		return
	}
	for _, canonical := range other.Canonicals() {
		l.Add(canonical, other.forms[canonical][1:]...)
	}
}

// Lookup returns the canonical form of token and whether it is known.
func (l *Lexicon) Lookup(token string) (string, bool) {
	canonical, ok := l.reverse[strings.ToLower(token)]
	return canonical, ok
}

// Normalize returns the canonical form of token, or the lowercased token
// when it is unknown.
func (l *Lexicon) Normalize(token string) string {
	if canonical, ok := l.Lookup(token); ok {
		return canonical
	}
	return strings.ToLower(token)
}

// Variants returns every known form of token, canonical first.
func (l *Lexicon) Variants(token string) []string {
	canonical := l.Normalize(token)
	if group, ok := l.forms[canonical]; ok {
		return group
	}
	return []string{canonical}
}

// Canonicals returns the canonical forms in sorted order.
func (l *Lexicon) Canonicals() []string {
	out := make([]string, 0, len(l.forms))
	for c := range l.forms {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len is the number of groups.
func (l *Lexicon) Len() int { return len(l.forms) }
