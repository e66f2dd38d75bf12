package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

const dictionary = `variable_name,description,source_directory
hr,Heart rate,study_a
heart_rate,heart rates,study_b
bp,Blood pressure,study_c
`

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestCategorizeAnalyzeExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dict.csv")
	require.NoError(t, os.WriteFile(in, []byte(dictionary), 0o644))

	categorized := filepath.Join(dir, "categorized.csv")
	require.NoError(t, execute(t, "categorize", in, categorized, "-c", "rake_analyzer", "-q"))

	data, err := os.ReadFile(categorized)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "variable_name,description,source_directory,categories", lines[0])
	assert.Equal(t, "heart_rate,heart rates,study_b,heart rate", lines[2])

	analyzed := filepath.Join(dir, "analyzed.jsonl")
	require.NoError(t, execute(t, "analyze", categorized, analyzed, "-p", "equivalence", "-m", "0.6", "-q"))

	data, err = os.ReadFile(analyzed)
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], `"related_group":"0"`)
	assert.Contains(t, rows[0], `"heart_rate":1`)

	graph := filepath.Join(dir, "graph.gexf")
	require.NoError(t, execute(t, "export", analyzed, graph, "-q"))
	info, err := os.Stat(graph)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunWritesBothOutputs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dict.csv")
	require.NoError(t, os.WriteFile(in, []byte(dictionary), 0o644))

	out := filepath.Join(dir, "out.csv")
	categorized := filepath.Join(dir, "categorized.csv")
	require.NoError(t, execute(t, "run", in, out, "--categorized", categorized, "--workers", "1", "-q"))

	for _, p := range []string{out, categorized} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestCLIErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dict.csv")
	require.NoError(t, os.WriteFile(in, []byte(dictionary), 0o644))

	err := execute(t, "categorize", in, filepath.Join(dir, "out.txt"), "-q")
	assert.ErrorIs(t, err, internalerr.ErrUnsupportedFormat)

	err = execute(t, "categorize", in, filepath.Join(dir, "out.csv"), "-c", "magic", "-q")
	assert.ErrorIs(t, err, internalerr.ErrUnknownStrategy)

	err = execute(t, "analyze", in, filepath.Join(dir, "out.csv"), "-p", "union", "-q")
	assert.ErrorIs(t, err, internalerr.ErrUnknownPolicy)

	err = execute(t, "categorize", in, "-q")
	assert.Error(t, err)

	err = execute(t, "categorize", in, filepath.Join(dir, "o.csv"), "-v", "-q")
	assert.Error(t, err)
}
