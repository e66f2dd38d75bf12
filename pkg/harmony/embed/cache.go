package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes another embedder by exact text. Safe for concurrent use.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

func NewCached(inner Embedder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// Len reports the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close closes the wrapped embedder when it holds resources.
func (c *Cached) Close() error {
	return Close(c.inner)
}
