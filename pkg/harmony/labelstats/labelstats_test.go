package labelstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

func batch() []cde.Record {
	mk := func(labels ...string) cde.Record {
		r := cde.NewRecord(nil)
		if labels != nil {
			r.SetCategories(labels)
		}
		return r
	}
	return []cde.Record{
		mk("heart", "score"),
		mk("heart", "rate", "score"),
		mk("blood", "score"),
		mk("score", "score"),
		mk(),
	}
}

func TestLabelsOrderAndPercent(t *testing.T) {
	a := NewAnalyzer()
	a.ProcessRecords(batch(), cde.FieldCategories)
	s := a.Snapshot()

	require.EqualValues(t, 5, s.TotalDocs)
	top := s.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "score", top[0].Label)
	assert.EqualValues(t, 4, top[0].DF)
	assert.InDelta(t, 80.0, top[0].DFPercent, 1e-9)
	assert.Equal(t, "heart", top[1].Label)

	assert.Len(t, s.Top(0), 4)
}

func TestFrequent(t *testing.T) {
	a := NewAnalyzer()
	a.ProcessRecords(batch(), cde.FieldCategories)
	s := a.Snapshot()

	assert.Equal(t, []string{"score"}, s.Frequent(50))
	assert.Equal(t, []string{"heart", "score"}, s.Frequent(39))
	assert.Nil(t, s.Frequent(0))
}

func TestTopPairs(t *testing.T) {
	a := NewAnalyzer()
	a.ProcessRecords(batch(), cde.FieldCategories)
	pairs := a.Snapshot().TopPairs(0, 2)

	require.Len(t, pairs, 1)
	assert.Equal(t, "heart", pairs[0].A)
	assert.Equal(t, "score", pairs[0].B)
	assert.EqualValues(t, 2, pairs[0].Support)
}

func TestEmptyStats(t *testing.T) {
	s := NewAnalyzer().Snapshot()
	assert.Nil(t, s.Labels())
	assert.Nil(t, s.TopPairs(5, 0))
}

func TestPrune(t *testing.T) {
	in := batch()
	out := Prune(in, cde.FieldCategories, []string{"score"})

	got, ok := out[3].Categories()
	require.True(t, ok)
	assert.Empty(t, got)
	got, _ = out[1].Categories()
	assert.Equal(t, []string{"heart", "rate"}, got)

	_, ok = out[4].Categories()
	assert.False(t, ok)

	orig, _ := in[0].Categories()
	assert.Equal(t, []string{"heart", "score"}, orig)
}
