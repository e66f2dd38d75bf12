package export

import (
	"encoding/xml"
	"io"
	"strconv"
)

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	Creator string `xml:"creator"`
}

type gexfGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string          `xml:"class,attr"`
	Attrs []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID     string          `xml:"id,attr"`
	Label  string          `xml:"label,attr"`
	Values []gexfAttrValue `xml:"attvalues>attvalue,omitempty"`
}

type gexfAttrValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
	Label  string  `xml:"label,attr,omitempty"`
}

// WriteGEXF writes g as GEXF 1.2.
func WriteGEXF(w io.Writer, g Graph) error {
	doc := gexfDoc{
		XMLNS:   "http://gexf.net/1.2",
		Version: "1.2",
		Meta:    gexfMeta{Creator: "cdeharmony"},
		Graph: gexfGraph{
			DefaultEdgeType: "undirected",
			Mode:            "static",
			Attributes:      gexfAttributes{Class: "node"},
		},
	}
	if g.Directed {
		doc.Graph.DefaultEdgeType = "directed"
	}

	for i, a := range g.Attributes {
		doc.Graph.Attributes.Attrs = append(doc.Graph.Attributes.Attrs, gexfAttribute{
			ID: strconv.Itoa(i), Title: a, Type: "string",
		})
	}
	for _, n := range g.Nodes {
		gn := gexfNode{ID: n.ID, Label: n.Label}
		for i, a := range g.Attributes {
			if v, ok := n.Attrs[a]; ok {
				gn.Values = append(gn.Values, gexfAttrValue{For: strconv.Itoa(i), Value: v})
			}
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, gn)
	}
	for i, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID: strconv.Itoa(i), Source: e.Source, Target: e.Target, Weight: e.Weight, Label: e.Kind,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
