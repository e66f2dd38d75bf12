package textnorm

import (
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/lexicon"
)

// Lemmatizer reduces a lowercase token to its base lexical form. Lemma must
// be idempotent: Lemma(Lemma(w)) == Lemma(w).
type Lemmatizer interface {
	Lemma(token string) string
}

// RuleLemmatizer consults a lexicon of irregular forms first and otherwise
// applies English plural suffix rules. Rules are repeated until the token
// stops changing, which makes the result a fixed point.
type RuleLemmatizer struct {
	lex *lexicon.Lexicon
}

// NewRuleLemmatizer creates a lemmatizer backed by lex. A nil lexicon means
// the built-in English irregular forms.
func NewRuleLemmatizer(lex *lexicon.Lexicon) *RuleLemmatizer {
	if lex == nil {
		lex = lexicon.NewEnglish()
	}
	return &RuleLemmatizer{lex: lex}
}

// Lemma returns the base form of token.
func (l *RuleLemmatizer) Lemma(token string) string {
	// every rule shortens the token and a lexicon hit lands on a canonical
	// form, which maps to itself, so this bound is never reached first
	for i := 0; i <= len(token)+1; i++ {
		next := l.step(token)
		if next == token {
			break
		}
		token = next
	}
	return token
}

func (l *RuleLemmatizer) step(w string) string {
	if canonical, ok := l.lex.Lookup(w); ok {
		return canonical
	}
	if len(w) <= 3 || hasDigit(w) || strings.Contains(w, "-") {
		return w
	}

	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "zzes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"),
		strings.HasSuffix(w, "is"), strings.HasSuffix(w, "ics"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}
