// Package grouping buckets categorized records into candidate groupings
// that are worth comparing pairwise.
package grouping

import (
	"fmt"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Policy decides when two records share a grouping.
type Policy string

const (
	// Equivalence groups records whose label sets are identical.
	Equivalence Policy = "equivalence"
	// Intersection groups records by each label they hold, so a record joins
	// one grouping per label.
	Intersection Policy = "intersection"
)

// ParsePolicy validates a policy name. Empty means Equivalence.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Equivalence, Intersection:
		return p, nil
	case "":
		return Equivalence, nil
	default:
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnknownPolicy, s)
	}
}

// Finder builds groupings from a label column.
type Finder struct {
	// LabelField is the list column holding labels. Default: categories.
	LabelField string
}

// FindGroupings buckets records under policy. Records without labels are
// skipped; groupings with fewer than two members are dropped. Groupings
// come out in order of creation and members in input order.
func (f Finder) FindGroupings(records []cde.Record, policy Policy) ([]cde.Grouping, error) {
	if policy != Equivalence && policy != Intersection {
		return nil, fmt.Errorf("%w: %q", internalerr.ErrUnknownPolicy, string(policy))
	}
	field := f.LabelField
	if field == "" {
		field = cde.FieldCategories
	}

	var groupings []cde.Grouping
	index := make(map[string]int)

	join := func(key string, labels []string, r cde.Record) {
		i, ok := index[key]
		if !ok {
			i = len(groupings)
			index[key] = i
			groupings = append(groupings, cde.Grouping{Key: key, Labels: labels})
		}
		groupings[i].Members = append(groupings[i].Members, r)
	}

	for _, r := range records {
		raw, _ := r.List(field)
		labels := Labels(raw)
		if len(labels) == 0 {
			continue
		}
		switch policy {
		case Equivalence:
			join(cde.LabelSetKey(labels), labels, r)
		case Intersection:
			for _, l := range labels {
				join(l, []string{l}, r)
			}
		}
	}

	out := groupings[:0]
	for _, g := range groupings {
		if len(g.Members) >= 2 {
			out = append(out, g)
		}
	}
	return out, nil
}

// FindGroupings uses the default label column.
func FindGroupings(records []cde.Record, policy Policy) ([]cde.Grouping, error) {
	return Finder{}.FindGroupings(records, policy)
}

// Labels returns the distinct non-blank labels of raw, in order.
func Labels(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
