package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

func r(id string) cde.Record {
	return cde.NewRecord(map[string]string{"id": id, "source_file": "f" + id})
}

func pair(a, b string, score float64) cde.Pair {
	return cde.Pair{A: r(a), B: r(b), Score: score}
}

var byID = Options{Key: cde.FieldKey("id"), ShortID: cde.FieldKey("id")}

func keys(g Group) []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Key
	}
	return out
}

func TestRegroupTransitive(t *testing.T) {
	groups, g := Regroup([]cde.Pair{pair("A", "B", 0.8), pair("B", "C", 0.7)}, byID)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A", "B", "C"}, keys(groups[0]))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	a := groups[0].Members[0]
	assert.Equal(t, map[string]float64{"B": 0.8}, a.Matches, "only direct neighbors")
	b := groups[0].Members[1]
	assert.Equal(t, map[string]float64{"A": 0.8, "C": 0.7}, b.Matches)
}

func TestRegroupSeparateComponents(t *testing.T) {
	groups, _ := Regroup([]cde.Pair{
		pair("1", "2", 0.9),
		pair("3", "4", 0.6),
		pair("2", "5", 0.55),
	}, byID)
	require.Len(t, groups, 2)

	assert.Equal(t, 0, groups[0].ID)
	assert.Equal(t, []string{"1", "2", "5"}, keys(groups[0]))
	assert.Equal(t, 1, groups[1].ID)
	assert.Equal(t, []string{"3", "4"}, keys(groups[1]))
	for _, grp := range groups {
		assert.GreaterOrEqual(t, len(grp.Members), 2)
		for _, m := range grp.Members {
			assert.Equal(t, grp.ID, m.Group)
		}
	}
}

func TestRegroupRoundsScores(t *testing.T) {
	groups, _ := Regroup([]cde.Pair{pair("1", "2", 0.87654)}, byID)
	assert.Equal(t, 0.88, groups[0].Members[0].Matches["2"])
}

func TestRegroupEmpty(t *testing.T) {
	groups, g := Regroup(nil, byID)
	assert.Empty(t, groups)
	assert.Empty(t, g.Nodes)
}

func TestBuildGraphIgnoresSelfAndDuplicatePairs(t *testing.T) {
	g := BuildGraph([]cde.Pair{
		pair("1", "1", 1),
		pair("1", "2", 0.6),
		pair("2", "1", 0.7),
	}, cde.FieldKey("id"))
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 0.7, g.Edges[0].Score)
	i, ok := g.Lookup("2")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestMatchesFallBackToFullKeyOnCollision(t *testing.T) {
	mk := func(file, id string) cde.Record {
		return cde.NewRecord(map[string]string{"id": id, "source_file": file})
	}
	hub := mk("a.csv", "1")
	x := mk("b.csv", "7")
	y := mk("c.csv", "7")
	opts := Options{Key: cde.CompositeKey("source_file", "id"), ShortID: cde.FieldKey("id")}

	groups, _ := Regroup([]cde.Pair{{A: hub, B: x, Score: 0.9}, {A: hub, B: y, Score: 0.8}}, opts)
	require.Len(t, groups, 1)
	assert.Equal(t, map[string]float64{"b.csv/7": 0.9, "c.csv/7": 0.8}, groups[0].Members[0].Matches)
	assert.Equal(t, map[string]float64{"1": 0.9}, groups[0].Members[1].Matches)
}

func TestMatchesFallBackWhenGroupMembersShareShortID(t *testing.T) {
	mk := func(dir string) cde.Record {
		return cde.NewRecord(map[string]string{"variable_name": "age", "source_directory": dir})
	}
	opts := Options{Key: cde.CompositeKey("source_directory", "variable_name"), ShortID: cde.FieldKey("variable_name")}

	groups, _ := Regroup([]cde.Pair{{A: mk("d1"), B: mk("d2"), Score: 0.934}}, opts)
	require.Len(t, groups, 1)
	assert.Equal(t, map[string]float64{"d2/age": 0.93}, groups[0].Members[0].Matches)
	assert.Equal(t, map[string]float64{"d1/age": 0.93}, groups[0].Members[1].Matches)
}

func TestFlatten(t *testing.T) {
	groups, _ := Regroup([]cde.Pair{pair("1", "2", 0.9), pair("3", "4", 0.6)}, byID)
	rows := Flatten(groups)
	require.Len(t, rows, 4)
	assert.Equal(t, "0", rows[0].Get(cde.FieldRelatedGroup))
	assert.Equal(t, "1", rows[3].Get(cde.FieldRelatedGroup))
	assert.Equal(t, map[string]float64{"3": 0.6}, rows[3].Dicts[cde.FieldMatches])

	// the graph's records are untouched
	assert.Equal(t, "", groups[0].Members[0].Record.Get(cde.FieldRelatedGroup))
}

func TestUnionFindLargeChain(t *testing.T) {
	var pairs []cde.Pair
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i := len(ids) - 1; i > 0; i-- {
		pairs = append(pairs, pair(ids[i], ids[i-1], 0.5))
	}
	groups, _ := Regroup(pairs, byID)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, len(ids))
}
