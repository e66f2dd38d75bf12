// Package labelstats aggregates label document frequencies over a batch of
// categorized records. Labels carried by a large share of the batch make
// poor grouping keys; Prune removes them before grouping.
package labelstats

import (
	"math"
	"sort"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// Analyzer aggregates per-record label stats.
type Analyzer struct {
	totalDocs  int64
	labelDF    map[string]int64
	pairCounts map[pair]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		labelDF:    make(map[string]int64),
		pairCounts: make(map[pair]int64),
	}
}

// Process consumes one record's labels. Records without labels still count
// toward the total.
func (a *Analyzer) Process(labels []string) {
	a.totalDocs++

	seen := make(map[string]struct{}, len(labels))
	unique := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		unique = append(unique, l)
		a.labelDF[l]++
	}

	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a.pairCounts[newPair(unique[i], unique[j])]++
		}
	}
}

// ProcessRecords feeds the list field of every record.
func (a *Analyzer) ProcessRecords(records []cde.Record, field string) {
	for _, r := range records {
		labels, _ := r.List(field)
		a.Process(labels)
	}
}

// Stats is a copy of the aggregated counts.
type Stats struct {
	TotalDocs  int64
	LabelDF    map[string]int64
	PairCounts map[pair]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	df := make(map[string]int64, len(a.labelDF))
	for l, c := range a.labelDF {
		df[l] = c
	}
	pairs := make(map[pair]int64, len(a.pairCounts))
	for p, c := range a.pairCounts {
		pairs[p] = c
	}
	return Stats{TotalDocs: a.totalDocs, LabelDF: df, PairCounts: pairs}
}

// LabelStat describes one label.
type LabelStat struct {
	Label     string
	DF        int64
	DFPercent float64
	IDF       float64
}

// Labels returns stats for every label, most frequent first, ties broken
// alphabetically.
func (s Stats) Labels() []LabelStat {
	if s.TotalDocs == 0 {
		return nil
	}
	out := make([]LabelStat, 0, len(s.LabelDF))
	for l, df := range s.LabelDF {
		out = append(out, LabelStat{
			Label:     l,
			DF:        df,
			DFPercent: 100 * float64(df) / float64(s.TotalDocs),
			IDF:       math.Log(float64(s.TotalDocs) / (1 + float64(df))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DF != out[j].DF {
			return out[i].DF > out[j].DF
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Top returns the n most frequent labels; n <= 0 means all.
func (s Stats) Top(n int) []LabelStat {
	all := s.Labels()
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Frequent returns the labels whose DF percent is strictly above
// maxPercent. A maxPercent <= 0 disables the check.
func (s Stats) Frequent(maxPercent float64) []string {
	if maxPercent <= 0 {
		return nil
	}
	var out []string
	for _, ls := range s.Labels() {
		if ls.DFPercent > maxPercent {
			out = append(out, ls.Label)
		}
	}
	sort.Strings(out)
	return out
}

// PairStat describes two labels that co-occur on the same records.
type PairStat struct {
	A       string
	B       string
	Support int64
	PMI     float64
}

// TopPairs returns co-occurring label pairs ranked by PMI, then support.
func (s Stats) TopPairs(limit int, minSupport int64) []PairStat {
	if s.TotalDocs == 0 {
		return nil
	}
	var out []PairStat
	for p, count := range s.PairCounts {
		if count < minSupport {
			continue
		}
		out = append(out, PairStat{
			A:       p.A,
			B:       p.B,
			Support: count,
			PMI:     computePMI(count, s.LabelDF[p.A], s.LabelDF[p.B], s.TotalDocs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PMI != out[j].PMI {
			return out[i].PMI > out[j].PMI
		}
		if out[i].Support != out[j].Support {
			return out[i].Support > out[j].Support
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Prune returns copies of records with the given labels removed from field.
// Records that end up with no labels keep an empty list.
func Prune(records []cde.Record, field string, drop []string) []cde.Record {
	out := cde.CloneAll(records)
	if len(drop) == 0 {
		return out
	}
	dropSet := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		dropSet[d] = struct{}{}
	}
	for i := range out {
		labels, ok := out[i].List(field)
		if !ok {
			continue
		}
		kept := make([]string, 0, len(labels))
		for _, l := range labels {
			if _, gone := dropSet[l]; !gone {
				kept = append(kept, l)
			}
		}
		out[i].SetList(field, kept)
	}
	return out
}

func computePMI(pairCount, dfA, dfB, totalDocs int64) float64 {
	if dfA == 0 || dfB == 0 || totalDocs == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(totalDocs)
	denominator := ((float64(dfA) + smooth) / float64(totalDocs)) * ((float64(dfB) + smooth) / float64(totalDocs))
	return math.Log(numerator / denominator)
}

type pair struct {
	A string
	B string
}

func newPair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}
