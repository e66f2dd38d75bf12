// Package export writes match and category graphs for external
// visualization (GEXF, JSON node-link) or pushes them into Neo4j.
package export

import (
	"sort"
	"strconv"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Node and edge kinds.
const (
	KindField    = "field"
	KindCategory = "category"
	KindMatches  = "matches"
	KindTags     = "tags"
)

// Node is a graph vertex with string attributes.
type Node struct {
	ID string
	// Key is the identity of the underlying field or category, shared
	// across graph kinds.
	Key   string
	Label string
	Kind  string
	Attrs map[string]string
}

// Edge connects two node ids.
type Edge struct {
	Source string
	Target string
	Kind   string
	Weight float64
}

// Graph is a format-neutral attributed graph.
type Graph struct {
	Directed bool
	// Attributes lists node attribute names in output order.
	Attributes []string
	Nodes      []Node
	Edges      []Edge
}

// MatchOptions configures MatchGraph.
type MatchOptions struct {
	// Key is the record identity used as node id. Required.
	Key cde.KeyFunc
	// ShortID resolves entries of the matches column and labels nodes.
	ShortID cde.KeyFunc
	// Attributes are the scalar columns copied onto nodes.
	Attributes []string
}

// MatchGraph rebuilds the undirected match graph from analysis rows, i.e.
// records carrying related_group and matches. A matches entry names a
// neighbor by short id within the same group, or by full key.
func MatchGraph(rows []cde.Record, opts MatchOptions) Graph {
	g := Graph{Attributes: append([]string{cde.FieldRelatedGroup}, opts.Attributes...)}

	type groupID struct{ group, short string }
	byKey := make(map[string]string, len(rows))
	byShort := make(map[groupID]string, len(rows))
	ambiguous := make(map[groupID]bool)

	for _, r := range rows {
		id := cde.ShortKey(opts.Key(r))
		label := id
		if opts.ShortID != nil {
			if s := opts.ShortID(r); s != "" {
				label = s
				gid := groupID{r.Get(cde.FieldRelatedGroup), s}
				if _, dup := byShort[gid]; dup {
					ambiguous[gid] = true
				}
				byShort[gid] = id
			}
		}
		byKey[id] = id

		attrs := map[string]string{cde.FieldRelatedGroup: r.Get(cde.FieldRelatedGroup)}
		for _, a := range opts.Attributes {
			attrs[a] = r.Get(a)
		}
		g.Nodes = append(g.Nodes, Node{ID: id, Key: id, Label: label, Kind: KindField, Attrs: attrs})
	}

	seen := make(map[[2]string]bool)
	for i, r := range rows {
		src := g.Nodes[i].ID
		matches := r.Dicts[cde.FieldMatches]
		names := make([]string, 0, len(matches))
		for name := range matches {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			dst, ok := byKey[name]
			if !ok {
				gid := groupID{r.Get(cde.FieldRelatedGroup), name}
				if ambiguous[gid] {
					continue
				}
				if dst, ok = byShort[gid]; !ok {
					continue
				}
			}
			if dst == src {
				continue
			}
			ek := [2]string{src, dst}
			if dst < src {
				ek = [2]string{dst, src}
			}
			if seen[ek] {
				continue
			}
			seen[ek] = true
			g.Edges = append(g.Edges, Edge{Source: src, Target: dst, Kind: KindMatches, Weight: matches[name]})
		}
	}
	return g
}

// CategoryGraph links each category to the records tagged with it
// (category -> field, directed). Records without labels are left out.
func CategoryGraph(records []cde.Record, key cde.KeyFunc, labelField string) Graph {
	if labelField == "" {
		labelField = cde.FieldCategories
	}
	g := Graph{Directed: true, Attributes: []string{"type", "degree"}}

	catIndex := make(map[string]int)
	for _, r := range records {
		labels, _ := r.List(labelField)
		if len(labels) == 0 {
			continue
		}
		id := cde.ShortKey(key(r))
		g.Nodes = append(g.Nodes, Node{ID: "field:" + id, Key: id, Label: id, Kind: KindField, Attrs: map[string]string{"type": KindField}})
		for _, l := range labels {
			ci, ok := catIndex[l]
			if !ok {
				ci = len(g.Nodes)
				catIndex[l] = ci
				g.Nodes = append(g.Nodes, Node{ID: "category:" + l, Key: l, Label: l, Kind: KindCategory, Attrs: map[string]string{"type": KindCategory}})
			}
			g.Edges = append(g.Edges, Edge{Source: g.Nodes[ci].ID, Target: "field:" + id, Kind: KindTags, Weight: 1})
		}
	}

	degree := make(map[string]int)
	for _, e := range g.Edges {
		degree[e.Source]++
	}
	for i := range g.Nodes {
		g.Nodes[i].Attrs["degree"] = strconv.Itoa(degree[g.Nodes[i].ID])
	}
	return g
}
