package categorize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/embed"
)

const (
	defaultTopN     = 5
	maxCandidateLen = 3
)

// Keyphrase scores candidate phrases by the cosine similarity between the
// phrase embedding and the embedding of the field text it came from. Each
// configured field is a separate document; per document the TopN best
// phrases scoring at least the threshold are kept.
type Keyphrase struct {
	embedder  embed.Embedder
	rake      *Rake
	threshold float64
	topN      int
}

func NewKeyphrase(e embed.Embedder, stops Stopwords, threshold float64, topN int) *Keyphrase {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Keyphrase{embedder: e, rake: NewRake(stops), threshold: threshold, topN: topN}
}

func (k *Keyphrase) Name() string { return StrategyKeyphrase }

func (k *Keyphrase) CategorizeFields(ctx context.Context, r cde.Record, fields []string) ([]string, error) {
	var out []string
	for _, f := range fields {
		doc := strings.TrimSpace(r.Get(f))
		if doc == "" {
			continue
		}
		scored, err := k.Extract(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f, err)
		}
		for _, s := range scored {
			if s.Score >= k.threshold {
				out = append(out, s.Phrase)
			}
		}
	}
	return out, nil
}

// Extract returns the TopN candidates of doc with their scores, best first.
func (k *Keyphrase) Extract(ctx context.Context, doc string) ([]ScoredPhrase, error) {
	candidates := k.candidates(doc)
	if len(candidates) == 0 {
		return nil, nil
	}

	docVec, err := k.embedder.Embed(ctx, doc)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredPhrase, 0, len(candidates))
	for _, c := range candidates {
		vec, err := k.embedder.Embed(ctx, c)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredPhrase{Phrase: c, Score: embed.Cosine(docVec, vec)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k.topN {
		scored = scored[:k.topN]
	}
	return scored, nil
}

// candidates lists every contiguous n-gram (n <= 3) of each stopword-free
// phrase, in order of first appearance.
func (k *Keyphrase) candidates(doc string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range k.rake.Phrases(doc) {
		for n := 1; n <= maxCandidateLen && n <= len(p); n++ {
			for i := 0; i+n <= len(p); i++ {
				c := strings.Join(p[i:i+n], " ")
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
			}
		}
	}
	return out
}
