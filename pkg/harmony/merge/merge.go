package merge

import (
	"math"
	"strconv"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Member is a record placed in an output group.
type Member struct {
	Key    string
	Record cde.Record
	Group  int
	// Matches maps a short id of each directly connected neighbor to the
	// edge score rounded to two decimals.
	Matches map[string]float64
}

// Group is one connected component.
type Group struct {
	ID      int
	Members []Member
}

// Options configures Regroup.
type Options struct {
	// Key is the node identity. Required.
	Key cde.KeyFunc
	// ShortID names neighbors in Matches. When nil, or when two members of
	// the same group share a short id, the neighbor's full key is used
	// instead.
	ShortID cde.KeyFunc
}

// Regroup builds the identity graph from accepted pairs and returns one
// group per connected component, numbered from 0, plus the graph itself.
func Regroup(pairs []cde.Pair, opts Options) ([]Group, *Graph) {
	g := BuildGraph(pairs, opts.Key)
	comps := g.Components()

	groups := make([]Group, len(comps))
	for gi, comp := range comps {
		groups[gi] = Group{ID: gi, Members: make([]Member, 0, len(comp))}
		names := shortNames(g, comp, opts.ShortID)
		for _, n := range comp {
			groups[gi].Members = append(groups[gi].Members, Member{
				Key:     g.Nodes[n].Key,
				Record:  g.Nodes[n].Record,
				Group:   gi,
				Matches: matches(g, n, names),
			})
		}
	}
	return groups, g
}

// shortNames maps each node of a component to the name other members use
// for it in Matches. A short id shared by two members of the component
// falls back to the full key for both.
func shortNames(g *Graph, comp []int, short cde.KeyFunc) map[int]string {
	names := make(map[int]string, len(comp))
	count := make(map[string]int, len(comp))
	for _, n := range comp {
		if short != nil {
			names[n] = short(g.Nodes[n].Record)
		}
		count[names[n]]++
	}
	for _, n := range comp {
		if names[n] == "" || count[names[n]] > 1 {
			names[n] = cde.ShortKey(g.Nodes[n].Key)
		}
	}
	return names
}

func matches(g *Graph, n int, names map[int]string) map[string]float64 {
	ids, scores := g.Neighbors(n)
	out := make(map[string]float64, len(ids))
	for i, id := range ids {
		out[names[id]] = Round2(scores[i])
	}
	return out
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Flatten returns one record per member, in group order, each a copy of
// the input record with related_group and matches set.
func Flatten(groups []Group) []cde.Record {
	var out []cde.Record
	for _, grp := range groups {
		for _, m := range grp.Members {
			r := m.Record.Clone()
			r.Set(cde.FieldRelatedGroup, strconv.Itoa(grp.ID))
			r.SetDict(cde.FieldMatches, m.Matches)
			out = append(out, r)
		}
	}
	return out
}
