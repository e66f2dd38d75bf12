// Package cde holds the data model shared by every harmonization stage:
// records read from a data dictionary, candidate groupings and scored pairs.
package cde

import (
	"sort"
	"strings"
)

// Well-known column names.
const (
	FieldCategories      = "categories"
	FieldRelatedGroup    = "related_group"
	FieldMatches         = "matches"
	FieldDescription     = "description"
	FieldSourceDirectory = "source_directory"
)

// Record is one row of a data dictionary. Scalar columns live in Fields;
// columns parsed as lists or dicts by the record source live in Lists and
// Dicts. A record is categorized once Lists[FieldCategories] is present,
// even when the list is empty.
type Record struct {
	Fields map[string]string
	Lists  map[string][]string
	Dicts  map[string]map[string]float64
}

// NewRecord creates a record from scalar fields.
func NewRecord(fields map[string]string) Record {
	if fields == nil {
		fields = map[string]string{}
	}
	return Record{Fields: fields}
}

// Get returns a scalar field, or "" when absent.
func (r Record) Get(field string) string {
	return r.Fields[field]
}

// Set assigns a scalar field.
func (r *Record) Set(field, value string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.Fields[field] = value
}

// Categories returns the label set and whether the record was categorized.
func (r Record) Categories() ([]string, bool) {
	return r.List(FieldCategories)
}

// SetCategories stores labels as the record's category set.
func (r *Record) SetCategories(labels []string) {
	r.SetList(FieldCategories, labels)
}

// ClearCategories removes the category field entirely.
func (r *Record) ClearCategories() {
	r.DeleteList(FieldCategories)
}

// List returns a list-valued column and whether it is present.
func (r Record) List(field string) ([]string, bool) {
	values, ok := r.Lists[field]
	return values, ok
}

// DeleteList removes a list-valued column.
func (r *Record) DeleteList(field string) {
	delete(r.Lists, field)
}

// SetList stores a list-valued column.
func (r *Record) SetList(field string, values []string) {
	if r.Lists == nil {
		r.Lists = map[string][]string{}
	}
	if values == nil {
		values = []string{}
	}
	r.Lists[field] = values
}

// SetDict stores a dict-valued column.
func (r *Record) SetDict(field string, values map[string]float64) {
	if r.Dicts == nil {
		r.Dicts = map[string]map[string]float64{}
	}
	if values == nil {
		values = map[string]float64{}
	}
	r.Dicts[field] = values
}

// Text concatenates the non-empty values of fields with sep.
func (r Record) Text(fields []string, sep string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(r.Fields[f]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	if r.Lists != nil {
		out.Lists = make(map[string][]string, len(r.Lists))
		for k, v := range r.Lists {
			out.Lists[k] = append([]string{}, v...)
		}
	}
	if r.Dicts != nil {
		out.Dicts = make(map[string]map[string]float64, len(r.Dicts))
		for k, d := range r.Dicts {
			cp := make(map[string]float64, len(d))
			for dk, dv := range d {
				cp[dk] = dv
			}
			out.Dicts[k] = cp
		}
	}
	return out
}

// CloneAll deep copies a record slice.
func CloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Table is a loaded data dictionary: records plus the column order of the
// source, used to write records back in the same layout.
type Table struct {
	Columns []string
	Records []Record
}

// ColumnSet returns the output column order: the source columns, then any
// columns added after loading, sorted.
func (t Table) ColumnSet() []string {
	seen := make(map[string]bool, len(t.Columns))
	cols := make([]string, 0, len(t.Columns)+3)
	for _, c := range t.Columns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}

	var extra []string
	for _, r := range t.Records {
		for k := range r.Fields {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
		for k := range r.Lists {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
		for k := range r.Dicts {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
