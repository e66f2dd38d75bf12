// Package sqlite stores data dictionaries in a SQLite file. Scalar fields,
// list columns and dict columns each get their own table keyed by record.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Format reads and writes tables named <prefix>, <prefix>_columns,
// <prefix>_fields, <prefix>_lists and <prefix>_dicts.
type Format struct {
	prefix string
}

// NewFormat validates the table prefix.
func NewFormat(prefix string) (*Format, error) {
	if prefix == "" {
		prefix = "cde"
	}
	if !identRe.MatchString(prefix) {
		return nil, fmt.Errorf("%w: table name %q", internalerr.ErrInvalidConfig, prefix)
	}
	return &Format{prefix: prefix}, nil
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (f *Format) schema() string {
	return strings.ReplaceAll(`
CREATE TABLE {p} (
	id INTEGER PRIMARY KEY
);

CREATE TABLE {p}_columns (
	position INTEGER PRIMARY KEY,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE {p}_fields (
	record_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	UNIQUE(record_id, name),
	FOREIGN KEY(record_id) REFERENCES {p}(id) ON DELETE CASCADE
);

CREATE TABLE {p}_lists (
	record_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	items_json TEXT NOT NULL,
	UNIQUE(record_id, name),
	FOREIGN KEY(record_id) REFERENCES {p}(id) ON DELETE CASCADE
);

CREATE TABLE {p}_dicts (
	record_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	entries_json TEXT NOT NULL,
	UNIQUE(record_id, name),
	FOREIGN KEY(record_id) REFERENCES {p}(id) ON DELETE CASCADE
);
`, "{p}", f.prefix)
}

// Save replaces any previous snapshot in the file.
func (f *Format) Save(ctx context.Context, path string, t cde.Table) error {
	db, err := open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, suffix := range []string{"_dicts", "_lists", "_fields", "_columns", ""} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+f.prefix+suffix); err != nil {
			return fmt.Errorf("drop %s%s: %w", f.prefix, suffix, err)
		}
	}
	if _, err := tx.ExecContext(ctx, f.schema()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	for i, col := range t.ColumnSet() {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+f.prefix+"_columns(position, name) VALUES(?, ?)", i, col); err != nil {
			return fmt.Errorf("insert column %s: %w", col, err)
		}
	}

	for i, r := range t.Records {
		if err := f.insertRecord(ctx, tx, int64(i), r); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (f *Format) insertRecord(ctx context.Context, tx *sql.Tx, id int64, r cde.Record) error {
	if _, err := tx.ExecContext(ctx, "INSERT INTO "+f.prefix+"(id) VALUES(?)", id); err != nil {
		return err
	}
	for name, value := range r.Fields {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+f.prefix+"_fields(record_id, name, value) VALUES(?, ?, ?)", id, name, value); err != nil {
			return err
		}
	}
	for name, items := range r.Lists {
		data, err := json.Marshal(items)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+f.prefix+"_lists(record_id, name, items_json) VALUES(?, ?, ?)", id, name, string(data)); err != nil {
			return err
		}
	}
	for name, entries := range r.Dicts {
		data, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+f.prefix+"_dicts(record_id, name, entries_json) VALUES(?, ?, ?)", id, name, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the snapshot written by Save.
func (f *Format) Load(ctx context.Context, path string) (cde.Table, error) {
	db, err := open(ctx, path)
	if err != nil {
		return cde.Table{}, err
	}
	defer db.Close()

	var t cde.Table
	t.Columns, err = loadStringColumn(ctx, db, "SELECT name FROM "+f.prefix+"_columns ORDER BY position")
	if err != nil {
		return cde.Table{}, fmt.Errorf("load columns: %w", err)
	}

	ids, err := loadIDs(ctx, db, "SELECT id FROM "+f.prefix+" ORDER BY id")
	if err != nil {
		return cde.Table{}, fmt.Errorf("load records: %w", err)
	}
	byID := make(map[int64]int, len(ids))
	t.Records = make([]cde.Record, len(ids))
	for i, id := range ids {
		byID[id] = i
		t.Records[i] = cde.NewRecord(nil)
	}

	err = scanTriples(ctx, db, "SELECT record_id, name, value FROM "+f.prefix+"_fields", func(id int64, name, value string) error {
		t.Records[byID[id]].Set(name, value)
		return nil
	})
	if err != nil {
		return cde.Table{}, fmt.Errorf("load fields: %w", err)
	}

	err = scanTriples(ctx, db, "SELECT record_id, name, items_json FROM "+f.prefix+"_lists", func(id int64, name, value string) error {
		var items []string
		if err := json.Unmarshal([]byte(value), &items); err != nil {
			return err
		}
		t.Records[byID[id]].SetList(name, items)
		return nil
	})
	if err != nil {
		return cde.Table{}, fmt.Errorf("load lists: %w", err)
	}

	err = scanTriples(ctx, db, "SELECT record_id, name, entries_json FROM "+f.prefix+"_dicts", func(id int64, name, value string) error {
		var entries map[string]float64
		if err := json.Unmarshal([]byte(value), &entries); err != nil {
			return err
		}
		t.Records[byID[id]].SetDict(name, entries)
		return nil
	})
	if err != nil {
		return cde.Table{}, fmt.Errorf("load dicts: %w", err)
	}

	return t, nil
}

func loadStringColumn(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func loadIDs(ctx context.Context, db *sql.DB, query string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanTriples(ctx context.Context, db *sql.DB, query string, fn func(id int64, name, value string) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          int64
			name, value string
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return err
		}
		if err := fn(id, name, value); err != nil {
			return err
		}
	}
	return rows.Err()
}
