// Package annotate calls a SciGraph-compatible entity annotation service.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultURL is the Monarch Initiative SciGraph annotator.
const DefaultURL = "https://api.monarchinitiative.org/api/nlp/annotate/entities"

// Annotator returns entity identifiers (CURIEs) found in text.
type Annotator interface {
	Annotate(ctx context.Context, text string) ([]string, error)
}

// Config for the annotation client.
type Config struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// Client posts text to the annotator. Every request is bounded by the HTTP
// client timeout and paced by a shared limiter, so concurrent callers never
// exceed RequestsPerSecond.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type entitiesResponse struct {
	Spans []struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		Text  string `json:"text"`
		Token []struct {
			ID       string   `json:"id"`
			Category []string `json:"category"`
			Terms    []string `json:"terms"`
		} `json:"token"`
	} `json:"spans"`
}

// New creates a client. Zero values fall back to DefaultURL, a 15s timeout
// and no rate limit.
func New(cfg Config) *Client {
	c := &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if cfg.Timeout <= 0 {
		c.httpClient.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Annotate returns entity ids in the order the service reports them.
func (c *Client) Annotate(ctx context.Context, text string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	form := url.Values{}
	form.Set("content", text)
	form.Set("min_length", "0")
	form.Set("include_abbreviation", "false")
	form.Set("include_acronym", "false")
	form.Set("include_numbers", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("annotate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("annotate: decode response: %w", err)
	}

	var ids []string
	for _, span := range payload.Spans {
		for _, tok := range span.Token {
			if tok.ID != "" {
				ids = append(ids, tok.ID)
			}
		}
	}
	return ids, nil
}
