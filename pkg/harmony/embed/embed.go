// Package embed turns text into vectors for semantic comparison. Providers
// are built once by New and are read-only afterwards.
package embed

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Embedder maps a text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Tokenizer supplies normalized tokens to the local hashing provider.
type Tokenizer interface {
	Tokens(text string) []string
}

// Config selects and configures a provider.
type Config struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	CacheSize  int    `mapstructure:"cache_size" yaml:"cache_size"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
)

// New builds the configured provider, wrapped in an LRU cache when
// CacheSize > 0. tok is only used by the hashing provider.
func New(ctx context.Context, cfg Config, tok Tokenizer) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHashing:
		if tok == nil {
			return nil, fmt.Errorf("%w: hashing embedder needs a tokenizer", internalerr.ErrCapabilityUnavailable)
		}
		e = NewHashing(tok, cfg.Dimensions)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai embeddings need an api key", internalerr.ErrCapabilityUnavailable)
		}
		e = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		e = NewOpenAI(apiKey, model, baseURL)
	case ProviderGemini:
		e, err = NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %w", internalerr.ErrCapabilityUnavailable, err)
		}
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", internalerr.ErrUnknownStrategy, cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCached(e, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", internalerr.ErrCapabilityUnavailable, err)
		}
		return cached, nil
	}
	return e, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Close releases e when it holds a client connection; other embedders are
// left alone.
func Close(e Embedder) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
