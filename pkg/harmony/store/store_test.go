package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

func sampleTable() cde.Table {
	a := cde.NewRecord(map[string]string{"id": "1", "description": "Heart rate, at rest", "source_directory": "d1"})
	a.SetCategories([]string{"heart", "rate", "heart rate"})
	b := cde.NewRecord(map[string]string{"id": "2", "description": "Cardiac rate", "source_directory": "d2"})
	b.SetCategories([]string{"cardiac", "rate"})
	c := cde.NewRecord(map[string]string{"id": "3", "description": "", "source_directory": "d3"})
	c.SetCategories(nil)
	// categorization failed: no categories field at all
	d := cde.NewRecord(map[string]string{"id": "4", "description": "Oxygen saturation", "source_directory": "d4"})
	return cde.Table{
		Columns: []string{"id", "description", "source_directory", cde.FieldCategories},
		Records: []cde.Record{a, b, c, d},
	}
}

func assertSameLabels(t *testing.T, want, got cde.Table) {
	t.Helper()
	require.Len(t, got.Records, len(want.Records))
	for i := range want.Records {
		wl, wantOK := want.Records[i].Categories()
		gl, ok := got.Records[i].Categories()
		assert.Equal(t, wantOK, ok, "record %d", i)
		assert.ElementsMatch(t, wl, gl, "record %d", i)
		assert.Equal(t, want.Records[i].Fields, got.Records[i].Fields, "record %d", i)
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"out.csv", "out.tsv", "out.xlsx", "out.jsonl", "out.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			in := sampleTable()
			require.NoError(t, Save(ctx, path, in, Options{}))

			out, err := Load(ctx, path, Options{})
			require.NoError(t, err)
			assert.Equal(t, in.Columns, out.Columns)
			assertSameLabels(t, in, out)
		})
	}
}

func TestCSVMatchesColumn(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analysis.csv")

	r := cde.NewRecord(map[string]string{"id": "1", cde.FieldRelatedGroup: "0"})
	r.SetDict(cde.FieldMatches, map[string]float64{"3": 0.5, "2": 0.9})
	require.NoError(t, Save(ctx, path, cde.Table{Columns: []string{"id"}, Records: []cde.Record{r}}, Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,matches,related_group", lines[0])
	assert.Equal(t, `1,"2,0.90;3,0.50",0`, lines[1])

	out, err := Load(ctx, path, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2": 0.9, "3": 0.5}, out.Records[0].Dicts[cde.FieldMatches])
	assert.Equal(t, "0", out.Records[0].Get(cde.FieldRelatedGroup))
}

func TestLoadCSVWithCustomDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "\ufeffid;description;categories\n1;Heart rate;heart|rate\n2;Pulse;\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts := Options{Delimiter: ";", ListDelimiter: "|"}
	tbl, err := Load(context.Background(), path, opts)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, []string{"id", "description", "categories"}, tbl.Columns)

	labels, _ := tbl.Records[0].Categories()
	assert.Equal(t, []string{"heart", "rate"}, labels)
	_, ok := tbl.Records[1].Categories()
	assert.False(t, ok)
}

func TestCSVKeepsFailedAndEmptyCategoriesApart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "categorized.csv")
	require.NoError(t, Save(ctx, path, sampleTable(), Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "3,,d3,[]", lines[3])
	assert.Equal(t, "4,Oxygen saturation,d4,", lines[4])

	out, err := Load(ctx, path, Options{})
	require.NoError(t, err)
	labels, ok := out.Records[2].Categories()
	assert.True(t, ok)
	assert.Empty(t, labels)
	_, ok = out.Records[3].Categories()
	assert.False(t, ok)
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Load(context.Background(), "cde.parquet", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "unsupported file name/extension 'cde.parquet'")

	err = Save(context.Background(), "cde", cde.Table{}, Options{})
	assert.ErrorIs(t, err, internalerr.ErrUnsupportedFormat)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.ErrorIs(t, Options{Delimiter: "::"}.Validate(), internalerr.ErrInvalidConfig)
	assert.ErrorIs(t, Options{DictDelimiters: ","}.Validate(), internalerr.ErrInvalidConfig)
}

func TestCodecLists(t *testing.T) {
	c, err := NewCodec(Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, c.SplitList(""))
	assert.Equal(t, []string{}, c.SplitList("[]"))
	assert.Equal(t, "[]", c.JoinList(nil))

	_, ok := c.DecodeList(" ")
	assert.False(t, ok)
	l, ok := c.DecodeList("[]")
	assert.True(t, ok)
	assert.Empty(t, l)
	assert.Equal(t, []string{"a", "b c"}, c.SplitList("a, b c,,"))
	assert.Equal(t, "a,b c", c.JoinList([]string{"a", "b c"}))
}

func TestCodecDicts(t *testing.T) {
	c, err := NewCodec(Options{})
	require.NoError(t, err)

	d, err := c.SplitDict("a,0.5;b,1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 1}, d)

	d, err = c.SplitDict("")
	require.NoError(t, err)
	assert.Empty(t, d)

	_, err = c.SplitDict("a0.5")
	assert.Error(t, err)
	_, err = c.SplitDict("a,high")
	assert.Error(t, err)

	assert.Equal(t, "a,0.50;b,1.00", c.JoinDict(map[string]float64{"b": 1, "a": 0.5}))
}

func TestLoadJSONLKeepsKeyOrderAndTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := `{"variable_name":"hr","id":7,"categories":["heart"],"required":true}
{"variable_name":"bp","id":8,"categories":"blood,pressure","notes":null}

`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"variable_name", "id", "categories", "required", "notes"}, tbl.Columns)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "7", tbl.Records[0].Get("id"))
	assert.Equal(t, "true", tbl.Records[0].Get("required"))
	labels, _ := tbl.Records[1].Categories()
	assert.Equal(t, []string{"blood", "pressure"}, labels)
}

func TestLoadJSONLRejectsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"1\"}\n[1,2]\n"), 0o644))

	_, err := Load(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
