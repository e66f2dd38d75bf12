package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Options controls how records are laid out in flat files.
type Options struct {
	// Delimiter separates CSV columns. Default "," (tab for .tsv files).
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	// ListDelimiter joins list values: "a,b,c".
	ListDelimiter string `mapstructure:"list_delimiter" yaml:"list_delimiter"`
	// DictDelimiters is two characters: key/value separator then entry
	// separator, so ",;" writes "a,0.9;b,0.8".
	DictDelimiters string `mapstructure:"dict_delimiters" yaml:"dict_delimiters"`
	// ListFields are parsed as lists on load. Default: categories.
	ListFields []string `mapstructure:"list_fields" yaml:"list_fields"`
	// DictFields are parsed as dicts on load. Default: matches.
	DictFields []string `mapstructure:"dict_fields" yaml:"dict_fields"`
	// Sheet is the xlsx worksheet. Default: first sheet on load, "CDE" on save.
	Sheet string `mapstructure:"sheet" yaml:"sheet"`
	// Table is the SQLite table name prefix. Default "cde".
	Table string `mapstructure:"table" yaml:"table"`
}

// DefaultOptions returns the comma-separated layout with categories as a
// list column and matches as a dict column.
func DefaultOptions() Options {
	return Options{
		Delimiter:      ",",
		ListDelimiter:  ",",
		DictDelimiters: ",;",
		ListFields:     []string{cde.FieldCategories},
		DictFields:     []string{cde.FieldMatches},
		Table:          "cde",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Delimiter == "" {
		o.Delimiter = def.Delimiter
	}
	if o.ListDelimiter == "" {
		o.ListDelimiter = def.ListDelimiter
	}
	if o.DictDelimiters == "" {
		o.DictDelimiters = def.DictDelimiters
	}
	if len(o.ListFields) == 0 {
		o.ListFields = def.ListFields
	}
	if len(o.DictFields) == 0 {
		o.DictFields = def.DictFields
	}
	if o.Table == "" {
		o.Table = def.Table
	}
	return o
}

// Validate checks delimiter shapes.
func (o Options) Validate() error {
	o = o.withDefaults()
	if utf8.RuneCountInString(o.Delimiter) != 1 {
		return fmt.Errorf("%w: column delimiter %q must be one character", internalerr.ErrInvalidConfig, o.Delimiter)
	}
	if utf8.RuneCountInString(o.DictDelimiters) != 2 {
		return fmt.Errorf("%w: dict delimiters %q must be two characters", internalerr.ErrInvalidConfig, o.DictDelimiters)
	}
	return nil
}

// Codec converts between flat string rows and records.
type Codec struct {
	listSep   string
	dictInner string
	dictOuter string
	lists     map[string]bool
	dicts     map[string]bool
}

// NewCodec builds a codec from options, applying defaults.
func NewCodec(o Options) (*Codec, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	o = o.withDefaults()
	runes := []rune(o.DictDelimiters)
	c := &Codec{
		listSep:   o.ListDelimiter,
		dictInner: string(runes[0]),
		dictOuter: string(runes[1]),
		lists:     make(map[string]bool),
		dicts:     make(map[string]bool),
	}
	for _, f := range o.ListFields {
		c.lists[f] = true
	}
	for _, f := range o.DictFields {
		c.dicts[f] = true
	}
	return c, nil
}

// EmptyList is the cell text of a present but empty list. A blank cell
// means the record has no such list at all, e.g. a record whose
// categorization failed.
const EmptyList = "[]"

// SplitList parses a serialized list. Blank items are dropped, so "" and
// EmptyList are both an empty list.
func (c *Codec) SplitList(s string) []string {
	out := []string{}
	if s = strings.TrimSpace(s); s == "" || s == EmptyList {
		return out
	}
	for _, item := range strings.Split(s, c.listSep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JoinList serializes a list. An empty list becomes EmptyList.
func (c *Codec) JoinList(values []string) string {
	if len(values) == 0 {
		return EmptyList
	}
	return strings.Join(values, c.listSep)
}

// DecodeList parses a list cell and reports whether the list is present.
func (c *Codec) DecodeList(s string) ([]string, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	return c.SplitList(s), true
}

// SplitDict parses "k,v;k,v".
func (c *Codec) SplitDict(s string) (map[string]float64, error) {
	out := map[string]float64{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, entry := range strings.Split(s, c.dictOuter) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		i := strings.LastIndex(entry, c.dictInner)
		if i < 0 {
			return nil, fmt.Errorf("dict entry %q has no %q separator", entry, c.dictInner)
		}
		key := strings.TrimSpace(entry[:i])
		v, err := strconv.ParseFloat(strings.TrimSpace(entry[i+len(c.dictInner):]), 64)
		if err != nil {
			return nil, fmt.Errorf("dict entry %q: %w", entry, err)
		}
		out[key] = v
	}
	return out, nil
}

// JoinDict serializes a dict with sorted keys and two-decimal values.
func (c *Codec) JoinDict(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + c.dictInner + strconv.FormatFloat(m[k], 'f', 2, 64)
	}
	return strings.Join(parts, c.dictOuter)
}

// Decode turns a header/value row into a record.
func (c *Codec) Decode(header, values []string) (cde.Record, error) {
	r := cde.NewRecord(make(map[string]string, len(header)))
	for i, col := range header {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		switch {
		case c.lists[col]:
			if l, ok := c.DecodeList(v); ok {
				r.SetList(col, l)
			}
		case c.dicts[col]:
			d, err := c.SplitDict(v)
			if err != nil {
				return cde.Record{}, fmt.Errorf("column %s: %w", col, err)
			}
			r.SetDict(col, d)
		default:
			r.Set(col, v)
		}
	}
	return r, nil
}

// Encode renders a record as values in column order.
func (c *Codec) Encode(r cde.Record, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if l, ok := r.Lists[col]; ok {
			out[i] = c.JoinList(l)
			continue
		}
		if d, ok := r.Dicts[col]; ok {
			out[i] = c.JoinDict(d)
			continue
		}
		out[i] = r.Fields[col]
	}
	return out
}
