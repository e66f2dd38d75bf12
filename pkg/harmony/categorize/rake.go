package categorize

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Rake ranks candidate phrases with the RAKE algorithm: text is cut into
// phrases at stopwords and punctuation, each word scores degree/frequency
// and a phrase scores the sum of its words. All phrases are returned, best
// first.
type Rake struct {
	stops Stopwords
}

func NewRake(stops Stopwords) *Rake {
	return &Rake{stops: stops}
}

func (r *Rake) Name() string { return StrategyRake }

func (r *Rake) CategorizeFields(_ context.Context, rec cde.Record, fields []string) ([]string, error) {
	ranked := r.Rank(rec.Text(fields, ". "))
	out := make([]string, len(ranked))
	for i, p := range ranked {
		out[i] = p.Phrase
	}
	return out, nil
}

// ScoredPhrase is a candidate phrase and its score.
type ScoredPhrase struct {
	Phrase string
	Score  float64
}

// Rank returns the unique phrases of text ordered by descending score, ties
// broken by first appearance.
func (r *Rake) Rank(text string) []ScoredPhrase {
	phrases := r.Phrases(text)
	if len(phrases) == 0 {
		return nil
	}

	freq := make(map[string]float64)
	degree := make(map[string]float64)
	for _, p := range phrases {
		for _, w := range p {
			freq[w]++
			degree[w] += float64(len(p))
		}
	}

	seen := make(map[string]bool)
	var ranked []ScoredPhrase
	for _, p := range phrases {
		phrase := strings.Join(p, " ")
		if seen[phrase] {
			continue
		}
		seen[phrase] = true
		var score float64
		for _, w := range p {
			score += degree[w] / freq[w]
		}
		ranked = append(ranked, ScoredPhrase{Phrase: phrase, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Phrases splits text into lowercase candidate phrases (word sequences
// between stopwords and punctuation), in order of appearance.
func (r *Rake) Phrases(text string) [][]string {
	var (
		phrases [][]string
		current []string
		word    strings.Builder
	)

	endWord := func() {
		if word.Len() == 0 {
			return
		}
		w := strings.Trim(word.String(), "-'")
		word.Reset()
		if w == "" {
			return
		}
		if r.stops.IsStop(w) {
			endPhrase(&phrases, &current)
			return
		}
		current = append(current, w)
	}

	for _, ch := range text {
		switch {
		case unicode.IsLetter(ch) || unicode.IsNumber(ch) || ch == '-' || ch == '\'':
			word.WriteRune(unicode.ToLower(ch))
		case unicode.IsSpace(ch):
			endWord()
		default:
			endWord()
			endPhrase(&phrases, &current)
		}
	}
	endWord()
	endPhrase(&phrases, &current)

	return phrases
}

func endPhrase(phrases *[][]string, current *[]string) {
	if len(*current) > 0 {
		*phrases = append(*phrases, *current)
		*current = nil
	}
}
