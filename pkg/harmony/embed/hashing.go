package embed

import (
	"context"
	"hash/fnv"
	"math"
)

const defaultDimensions = 256

// Hashing is an offline embedder: normalized tokens and their character
// trigrams are hashed into a fixed number of buckets with a sign bit, then
// the vector is L2-normalized. Texts sharing lemmas or word pieces score
// high; it has no notion of synonyms.
type Hashing struct {
	tok  Tokenizer
	dims int
}

func NewHashing(tok Tokenizer, dims int) *Hashing {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &Hashing{tok: tok, dims: dims}
}

func (h *Hashing) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, tok := range h.tok.Tokens(text) {
		h.add(vec, "w:"+tok, 1)
		padded := "^" + tok + "$"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			h.add(vec, "g:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
