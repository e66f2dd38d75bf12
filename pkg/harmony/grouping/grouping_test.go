package grouping

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

func labeled(id string, labels ...string) cde.Record {
	r := cde.NewRecord(map[string]string{"id": id})
	r.SetCategories(labels)
	return r
}

func ids(g cde.Grouping) []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Get("id")
	}
	return out
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Equivalence")
	require.NoError(t, err)
	assert.Equal(t, Equivalence, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Equivalence, p)

	_, err = ParsePolicy("union")
	assert.ErrorIs(t, err, internalerr.ErrUnknownPolicy)

	_, err = FindGroupings(nil, Policy("union"))
	assert.ErrorIs(t, err, internalerr.ErrUnknownPolicy)
}

func TestEquivalenceGrouping(t *testing.T) {
	recs := []cde.Record{
		labeled("1", "heart", "rate"),
		labeled("2", "rate", "heart"),
		labeled("3", "heart"),
		labeled("4", "blood"),
		labeled("5", "heart"),
	}
	groups, err := FindGroupings(recs, Equivalence)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "2"}, ids(groups[0]))
	assert.Equal(t, []string{"3", "5"}, ids(groups[1]))
}

func TestIntersectionGrouping(t *testing.T) {
	recs := []cde.Record{
		labeled("1", "heart", "rate"),
		labeled("2", "cardiac", "rate"),
		labeled("3", "blood", "pressure"),
		labeled("4", "heart"),
	}
	groups, err := FindGroupings(recs, Intersection)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "heart", groups[0].Key)
	assert.Equal(t, []string{"1", "4"}, ids(groups[0]))
	assert.Equal(t, "rate", groups[1].Key)
	assert.Equal(t, []string{"1", "2"}, ids(groups[1]))
}

func TestUnlabeledRecordsExcluded(t *testing.T) {
	blank := labeled("3", "")
	uncategorized := cde.NewRecord(map[string]string{"id": "4"})
	recs := []cde.Record{labeled("1"), labeled("2"), blank, uncategorized}

	for _, p := range []Policy{Equivalence, Intersection} {
		groups, err := FindGroupings(recs, p)
		require.NoError(t, err)
		assert.Empty(t, groups, p)
	}
}

func TestCustomLabelField(t *testing.T) {
	a := cde.NewRecord(map[string]string{"id": "1"})
	a.SetList("tags", []string{"x"})
	b := cde.NewRecord(map[string]string{"id": "2"})
	b.SetList("tags", []string{"x"})

	groups, err := Finder{LabelField: "tags"}.FindGroupings([]cde.Record{a, b}, Intersection)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	groups, err = FindGroupings([]cde.Record{a, b}, Intersection)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

// co-grouping must match the set relations exactly for every pair
func TestGroupingProperties(t *testing.T) {
	vocab := []string{"a", "b", "c", "d"}
	var recs []cde.Record
	for mask := 1; mask < 1<<len(vocab); mask++ {
		var labels []string
		for i, l := range vocab {
			if mask&(1<<i) != 0 {
				labels = append(labels, l)
			}
		}
		// two copies so every label set has a partner
		recs = append(recs, labeled(fmt.Sprintf("%d", mask), labels...))
		recs = append(recs, labeled(fmt.Sprintf("%d'", mask), reverse(labels)...))
	}

	check := func(p Policy, related func(a, b []string) bool) {
		groups, err := FindGroupings(recs, p)
		require.NoError(t, err)

		together := map[[2]string]bool{}
		for _, g := range groups {
			assert.GreaterOrEqual(t, len(g.Members), 2)
			for _, a := range g.Members {
				for _, b := range g.Members {
					together[[2]string{a.Get("id"), b.Get("id")}] = true
				}
			}
		}
		if p == Equivalence {
			seen := map[string]int{}
			for _, g := range groups {
				for _, m := range g.Members {
					seen[m.Get("id")]++
				}
			}
			for id, n := range seen {
				assert.Equal(t, 1, n, "record %s in several equivalence groupings", id)
			}
		}
		for _, a := range recs {
			for _, b := range recs {
				if a.Get("id") == b.Get("id") {
					continue
				}
				la, _ := a.Categories()
				lb, _ := b.Categories()
				assert.Equal(t, related(la, lb), together[[2]string{a.Get("id"), b.Get("id")}],
					"%s/%s under %s", a.Get("id"), b.Get("id"), p)
			}
		}
	}

	check(Equivalence, func(a, b []string) bool {
		return fmt.Sprint(sorted(a)) == fmt.Sprint(sorted(b))
	})
	check(Intersection, func(a, b []string) bool {
		for _, x := range a {
			for _, y := range b {
				if x == y {
					return true
				}
			}
		}
		return false
	})
}

func sorted(s []string) []string {
	out := append([]string{}, s...)
	sort.Strings(out)
	return out
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
