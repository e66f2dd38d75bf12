// Package merge joins accepted pairs transitively: records connected by a
// chain of accepted pairs end up in the same output group.
package merge

import (
	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Node is one record in the identity graph.
type Node struct {
	Key    string
	Record cde.Record
}

// Edge is an accepted pair between nodes From and To (indices into Nodes).
type Edge struct {
	From, To int
	Score    float64
}

// Graph is an undirected graph over record keys. Nodes enter only through
// edges, so no node is isolated.
type Graph struct {
	Nodes []Node
	Edges []Edge

	index map[string]int
	adj   [][]int // node -> edge indices
}

// BuildGraph adds both endpoints of every pair as nodes and the pair as an
// edge. Self pairs are ignored; a repeated pair keeps its highest score.
func BuildGraph(pairs []cde.Pair, key cde.KeyFunc) *Graph {
	g := &Graph{index: make(map[string]int)}
	edgeAt := make(map[[2]int]int)

	for _, p := range pairs {
		a := g.node(key(p.A), p.A)
		b := g.node(key(p.B), p.B)
		if a == b {
			continue
		}
		ek := [2]int{a, b}
		if b < a {
			ek = [2]int{b, a}
		}
		if i, ok := edgeAt[ek]; ok {
			if p.Score > g.Edges[i].Score {
				g.Edges[i].Score = p.Score
			}
			continue
		}
		edgeAt[ek] = len(g.Edges)
		g.adj[a] = append(g.adj[a], len(g.Edges))
		g.adj[b] = append(g.adj[b], len(g.Edges))
		g.Edges = append(g.Edges, Edge{From: a, To: b, Score: p.Score})
	}
	return g
}

func (g *Graph) node(key string, r cde.Record) int {
	if i, ok := g.index[key]; ok {
		return i
	}
	i := len(g.Nodes)
	g.index[key] = i
	g.Nodes = append(g.Nodes, Node{Key: key, Record: r})
	g.adj = append(g.adj, nil)
	return i
}

// Lookup returns the node index of key.
func (g *Graph) Lookup(key string) (int, bool) {
	i, ok := g.index[key]
	return i, ok
}

// Neighbors returns the node indices adjacent to n with their edge scores,
// in edge insertion order.
func (g *Graph) Neighbors(n int) ([]int, []float64) {
	ids := make([]int, 0, len(g.adj[n]))
	scores := make([]float64, 0, len(g.adj[n]))
	for _, ei := range g.adj[n] {
		e := g.Edges[ei]
		other := e.To
		if other == n {
			other = e.From
		}
		ids = append(ids, other)
		scores = append(scores, e.Score)
	}
	return ids, scores
}

// Components returns the connected components as node index lists. The
// components are ordered by their first node and nodes within a component
// keep insertion order.
func (g *Graph) Components() [][]int {
	uf := newUnionFind(len(g.Nodes))
	for _, e := range g.Edges {
		uf.union(e.From, e.To)
	}

	byRoot := make(map[int]int)
	var comps [][]int
	for n := range g.Nodes {
		root := uf.find(n)
		ci, ok := byRoot[root]
		if !ok {
			ci = len(comps)
			byRoot[root] = ci
			comps = append(comps, nil)
		}
		comps[ci] = append(comps[ci], n)
	}
	return comps
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
