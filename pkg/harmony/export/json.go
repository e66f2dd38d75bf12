package export

import (
	"encoding/json"
	"io"
)

type nodeLink struct {
	Directed bool           `json:"directed"`
	Nodes    []nodeLinkNode `json:"nodes"`
	Links    []nodeLinkEdge `json:"links"`
}

type nodeLinkNode struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Kind  string            `json:"kind"`
	Attrs map[string]string `json:"attributes,omitempty"`
}

type nodeLinkEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind"`
	Score  float64 `json:"score"`
}

// WriteJSON writes g in node-link form.
func WriteJSON(w io.Writer, g Graph) error {
	out := nodeLink{
		Directed: g.Directed,
		Nodes:    make([]nodeLinkNode, 0, len(g.Nodes)),
		Links:    make([]nodeLinkEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, nodeLinkNode{ID: n.ID, Label: n.Label, Kind: n.Kind, Attrs: n.Attrs})
	}
	for _, e := range g.Edges {
		out.Links = append(out.Links, nodeLinkEdge{Source: e.Source, Target: e.Target, Kind: e.Kind, Score: e.Weight})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
