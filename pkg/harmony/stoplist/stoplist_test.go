package stoplist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	m := NewManager([]string{"The", " of ", ""})
	assert.True(t, m.IsStop("the"))
	assert.True(t, m.IsStop("of"))
	assert.False(t, m.IsStop(""))
	assert.Equal(t, 2, m.Len())

	m.Add("rate")
	m.Remove("THE")
	assert.Equal(t, []string{"of", "rate"}, m.All())
}

func TestNewEnglish(t *testing.T) {
	m := NewEnglish()
	for _, w := range []string{"the", "of", "at", "and", "per"} {
		assert.True(t, m.IsStop(w), w)
	}
	for _, w := range []string{"heart", "rate", "blood", "pressure"} {
		assert.False(t, m.IsStop(w), w)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("terms: [Baseline, visit]\n"), 0o644))

	m, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"baseline", "visit"}, m.All())

	_, err = LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
