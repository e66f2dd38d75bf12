// Package store reads and writes data dictionaries. The file extension
// selects the format: .csv, .tsv, .xlsx, .jsonl, .db/.sqlite.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
	"github.com/cognicore/cdeharmony/pkg/harmony/store/sqlite"
)

// Format reads and writes one file type.
type Format interface {
	Load(ctx context.Context, path string) (cde.Table, error)
	Save(ctx context.Context, path string, t cde.Table) error
}

// ForPath picks the format for path.
func ForPath(path string, opts Options) (Format, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return newCSV(opts, []rune(opts.Delimiter)[0])
	case ".tsv":
		return newCSV(opts, '\t')
	case ".xlsx":
		return newXLSX(opts)
	case ".jsonl", ".ndjson":
		return newJSONL(opts)
	case ".db", ".sqlite", ".sqlite3":
		return sqlite.NewFormat(opts.Table)
	default:
		return nil, fmt.Errorf("%w '%s'", internalerr.ErrUnsupportedFormat, path)
	}
}

// Load reads a data dictionary.
func Load(ctx context.Context, path string, opts Options) (cde.Table, error) {
	f, err := ForPath(path, opts)
	if err != nil {
		return cde.Table{}, fmt.Errorf("failed to load CDE: %w", err)
	}
	return f.Load(ctx, path)
}

// Save writes a data dictionary, replacing path.
func Save(ctx context.Context, path string, t cde.Table, opts Options) error {
	f, err := ForPath(path, opts)
	if err != nil {
		return fmt.Errorf("failed to save CDE: %w", err)
	}
	return f.Save(ctx, path, t)
}
