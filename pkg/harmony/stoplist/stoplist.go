// Package stoplist holds the stopwords removed during label normalization
// and used as phrase delimiters by keyword extraction.
package stoplist

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager is a set of lowercase stopwords. It is not safe for concurrent
// mutation; build it fully before sharing.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a stoplist from initialStops.
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]struct{}, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s)
	}
	return m
}

// NewEnglish returns the built-in English stoplist.
func NewEnglish() *Manager {
	return NewManager(english)
}

// LoadFromYAML reads a stoplist file of the form `terms: [a, b, c]`.
func LoadFromYAML(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Terms []string `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return NewManager(doc.Terms), nil
}

// IsStop checks if a token is a stopword.
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add lowercases and adds token. Blank tokens are ignored.
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist.
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// All returns the stopwords sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Len is the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }
