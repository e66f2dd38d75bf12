package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

type csvFormat struct {
	codec *Codec
	comma rune
}

func newCSV(opts Options, comma rune) (*csvFormat, error) {
	codec, err := NewCodec(opts)
	if err != nil {
		return nil, err
	}
	return &csvFormat{codec: codec, comma: comma}, nil
}

func (f *csvFormat) Load(_ context.Context, path string) (cde.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return cde.Table{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = f.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return cde.Table{}, nil
	}
	if err != nil {
		return cde.Table{}, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	t := cde.Table{Columns: append([]string{}, header...)}
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cde.Table{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		rec, err := f.codec.Decode(header, row)
		if err != nil {
			return cde.Table{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func (f *csvFormat) Save(_ context.Context, path string, t cde.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(file)
	w.Comma = f.comma
	cols := t.ColumnSet()
	if err := w.Write(cols); err != nil {
		file.Close()
		return err
	}
	for _, r := range t.Records {
		if err := w.Write(f.codec.Encode(r, cols)); err != nil {
			file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
