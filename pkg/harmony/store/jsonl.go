package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

// jsonlFormat stores one JSON object per line. Lists and dicts are native
// JSON arrays and objects, so no delimiters are involved.
type jsonlFormat struct {
	codec *Codec
}

func newJSONL(opts Options) (*jsonlFormat, error) {
	codec, err := NewCodec(opts)
	if err != nil {
		return nil, err
	}
	return &jsonlFormat{codec: codec}, nil
}

func (j *jsonlFormat) Load(_ context.Context, path string) (cde.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return cde.Table{}, err
	}
	defer file.Close()

	var t cde.Table
	seen := make(map[string]bool)

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		keys, rec, err := j.decodeLine(data)
		if err != nil {
			return cde.Table{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Records = append(t.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return cde.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// decodeLine reads one object keeping key order.
func (j *jsonlFormat) decodeLine(data []byte) ([]string, cde.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, cde.Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, cde.Record{}, fmt.Errorf("expected a JSON object")
	}

	rec := cde.NewRecord(nil)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, cde.Record{}, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, cde.Record{}, fmt.Errorf("field %s: %w", key, err)
		}
		keys = append(keys, key)
		if err := j.assign(&rec, key, raw); err != nil {
			return nil, cde.Record{}, fmt.Errorf("field %s: %w", key, err)
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, cde.Record{}, err
	}
	return keys, rec, nil
}

func (j *jsonlFormat) assign(rec *cde.Record, key string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		if j.codec.lists[key] {
			rec.SetList(key, nil)
		} else {
			rec.Set(key, "")
		}
	case trimmed[0] == '[':
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return err
		}
		rec.SetList(key, values)
	case trimmed[0] == '{':
		var values map[string]float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return err
		}
		rec.SetDict(key, values)
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		// flat exports may carry serialized lists in string columns
		switch {
		case j.codec.lists[key]:
			if l, ok := j.codec.DecodeList(s); ok {
				rec.SetList(key, l)
			}
		case j.codec.dicts[key]:
			d, err := j.codec.SplitDict(s)
			if err != nil {
				return err
			}
			rec.SetDict(key, d)
		default:
			rec.Set(key, s)
		}
	default:
		// numbers and booleans keep their literal text
		rec.Set(key, string(trimmed))
	}
	return nil
}

func (j *jsonlFormat) Save(_ context.Context, path string, t cde.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	cols := t.ColumnSet()
	for _, r := range t.Records {
		line, err := encodeLine(r, cols)
		if err != nil {
			file.Close()
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// encodeLine writes the record's present columns in column order.
func encodeLine(r cde.Record, cols []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, col := range cols {
		var (
			value interface{}
			ok    bool
		)
		if value, ok = r.Lists[col]; !ok {
			if value, ok = r.Dicts[col]; !ok {
				value, ok = r.Fields[col]
			}
		}
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, _ := json.Marshal(col)
		buf.Write(name)
		buf.WriteByte(':')
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", col, err)
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
