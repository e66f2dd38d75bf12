package similarity

import (
	"context"
	"fmt"

	"github.com/cognicore/cdeharmony/pkg/harmony/embed"
)

// Scorer rates the semantic similarity of two texts in [0,1]. It must be a
// pure function of its inputs and safe for concurrent use.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, a, b string) (float64, error)

func (f ScorerFunc) Similarity(ctx context.Context, a, b string) (float64, error) {
	return f(ctx, a, b)
}

// EmbeddingScorer compares embeddings by cosine similarity. Negative
// cosines are clamped to 0.
type EmbeddingScorer struct {
	embedder embed.Embedder
}

func NewEmbeddingScorer(e embed.Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: e}
}

func (s *EmbeddingScorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("embed first text: %w", err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("embed second text: %w", err)
	}
	return clamp(embed.Cosine(va, vb)), nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
