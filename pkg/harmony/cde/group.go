package cde

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// Grouping is a candidate bucket of records sharing labels. Key identifies
// the bucket: the sorted label set under equivalence policy, a single label
// under intersection policy.
type Grouping struct {
	Key     string
	Labels  []string
	Members []Record
}

// Pair is two records and their similarity score in [0,1].
type Pair struct {
	A     Record
	B     Record
	Score float64
}

// KeyFunc yields the identity of a record in the match graph. It must be
// stable and unique across a batch and never depend on categories.
type KeyFunc func(Record) string

const keySep = "\x1f"

// FieldKey uses a single identifier column.
func FieldKey(field string) KeyFunc {
	return func(r Record) string {
		return strings.TrimSpace(r.Fields[field])
	}
}

// CompositeKey joins several columns. Empty when every column is empty.
func CompositeKey(fields ...string) KeyFunc {
	return func(r Record) string {
		parts := make([]string, len(fields))
		empty := true
		for i, f := range fields {
			parts[i] = strings.TrimSpace(r.Fields[f])
			if parts[i] != "" {
				empty = false
			}
		}
		if empty {
			return ""
		}
		return strings.Join(parts, keySep)
	}
}

// ShortKey renders a key for display, replacing the internal separator.
func ShortKey(key string) string {
	return strings.ReplaceAll(key, keySep, "/")
}

// ValidateKeys fails when a record has an empty key or two records share one.
func ValidateKeys(records []Record, key KeyFunc) error {
	if key == nil {
		return fmt.Errorf("%w: nil key function", internalerr.ErrInvalidConfig)
	}
	seen := make(map[string]int, len(records))
	var errs []error
	for i, r := range records {
		k := key(r)
		if k == "" {
			errs = append(errs, fmt.Errorf("record %d has an empty key", i))
			continue
		}
		if prev, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("records %d and %d share key %q", prev, i, ShortKey(k)))
			continue
		}
		seen[k] = i
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LabelSetKey is the order-independent identity of a label set.
func LabelSetKey(labels []string) string {
	sorted := append([]string{}, labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, keySep)
}
