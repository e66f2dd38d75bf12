package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndLookup(t *testing.T) {
	lex := New()
	lex.Add("Mouse", "mice", "MICE", "")

	c, ok := lex.Lookup("mice")
	require.True(t, ok)
	assert.Equal(t, "mouse", c)

	c, ok = lex.Lookup("mouse")
	require.True(t, ok)
	assert.Equal(t, "mouse", c)

	_, ok = lex.Lookup("rat")
	assert.False(t, ok)
	assert.Equal(t, "rat", lex.Normalize("Rat"))
	assert.Equal(t, []string{"mouse", "mice"}, lex.Variants("mice"))
	assert.Equal(t, []string{"rat"}, lex.Variants("rat"))
}

func TestAddReplacesGroup(t *testing.T) {
	lex := New()
	lex.Add("datum", "data")
	lex.Add("datum", "datums")

	_, ok := lex.Lookup("data")
	assert.False(t, ok)
	c, _ := lex.Lookup("datums")
	assert.Equal(t, "datum", c)
	assert.Equal(t, 1, lex.Len())
}

func TestCanonicalsMapToThemselves(t *testing.T) {
	lex := NewEnglish()
	for _, c := range lex.Canonicals() {
		got, ok := lex.Lookup(c)
		require.True(t, ok, c)
		assert.Equal(t, c, got)
	}
}

func TestLoadFromYAMLAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	doc := "forms:\n  - canonical: Vertebra\n    variants: [vertebrae, vertebras]\n  - canonical: ''\n  - canonical: status\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	loaded, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "vertebra"}, loaded.Canonicals())

	lex := NewEnglish()
	before := lex.Len()
	lex.Merge(loaded)
	assert.Equal(t, before+1, lex.Len())
	assert.Equal(t, "vertebra", lex.Normalize("vertebras"))
}
