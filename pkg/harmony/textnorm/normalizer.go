// Package textnorm turns raw field text and label candidates into canonical
// labels: lowercased lemmas with stopwords and punctuation removed, joined
// by single spaces.
package textnorm

import (
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/stoplist"
)

// Normalizer is safe for concurrent use once constructed.
type Normalizer struct {
	tokenizer Tokenizer
	lemma     Lemmatizer
	stops     *stoplist.Manager
}

// Options configures a Normalizer. Nil fields fall back to the built-in
// English lemmatizer and stoplist.
type Options struct {
	Lemmatizer Lemmatizer
	Stoplist   *stoplist.Manager
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{lemma: opts.Lemmatizer, stops: opts.Stoplist}
	if n.lemma == nil {
		n.lemma = NewRuleLemmatizer(nil)
	}
	if n.stops == nil {
		n.stops = stoplist.NewEnglish()
	}
	return n
}

// Tokens returns the surviving lemmas of text in order, duplicates kept.
func (n *Normalizer) Tokens(text string) []string {
	raw := n.tokenizer.Tokenize(FoldAccents(StripMarkup(text)))
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		lemma := n.lemma.Lemma(tok)
		if lemma == "" || n.stops.IsStop(lemma) || n.stops.IsStop(tok) {
			continue
		}
		out = append(out, lemma)
	}
	return out
}

// Normalize returns the canonical label for text. The result may be empty
// when every token is filtered; callers treat "" as no usable label.
// Normalize is idempotent.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// IsStop reports whether a lowercase token is a stopword.
func (n *Normalizer) IsStop(token string) bool {
	return n.stops.IsStop(token)
}
