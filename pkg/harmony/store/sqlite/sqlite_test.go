package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cde.db")

	f, err := NewFormat("")
	require.NoError(t, err)

	a := cde.NewRecord(map[string]string{"id": "1", "description": "Heart rate, resting"})
	a.SetCategories([]string{"heart", "rate"})
	a.SetDict(cde.FieldMatches, map[string]float64{"2": 0.9})
	b := cde.NewRecord(map[string]string{"id": "2", "description": ""})
	b.SetCategories(nil)
	c := cde.NewRecord(map[string]string{"id": "3", "description": "failed"})

	in := cde.Table{Columns: []string{"id", "description"}, Records: []cde.Record{a, b, c}}
	require.NoError(t, f.Save(ctx, path, in))

	out, err := f.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "description", cde.FieldCategories, cde.FieldMatches}, out.Columns)
	require.Len(t, out.Records, 3)
	assert.Equal(t, a, out.Records[0])

	labels, ok := out.Records[1].Categories()
	assert.True(t, ok)
	assert.Empty(t, labels)

	_, ok = out.Records[2].Categories()
	assert.False(t, ok, "absent list stays absent")
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cde.db")
	f, err := NewFormat("dictionary")
	require.NoError(t, err)

	first := cde.Table{Columns: []string{"id"}, Records: []cde.Record{
		cde.NewRecord(map[string]string{"id": "1"}),
		cde.NewRecord(map[string]string{"id": "2"}),
	}}
	require.NoError(t, f.Save(ctx, path, first))

	second := cde.Table{Columns: []string{"id"}, Records: []cde.Record{cde.NewRecord(map[string]string{"id": "9"})}}
	require.NoError(t, f.Save(ctx, path, second))

	out, err := f.Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "9", out.Records[0].Get("id"))
}

func TestNewFormatRejectsBadTableName(t *testing.T) {
	_, err := NewFormat("cde; DROP TABLE x")
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}
