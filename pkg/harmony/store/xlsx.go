package store

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
)

const defaultSheet = "CDE"

type xlsxFormat struct {
	codec *Codec
	sheet string
}

func newXLSX(opts Options) (*xlsxFormat, error) {
	codec, err := NewCodec(opts)
	if err != nil {
		return nil, err
	}
	return &xlsxFormat{codec: codec, sheet: opts.Sheet}, nil
}

func (x *xlsxFormat) Load(_ context.Context, path string) (cde.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return cde.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := x.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return cde.Table{}, fmt.Errorf("no sheets found in %s", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return cde.Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return cde.Table{}, nil
	}

	header := rows[0]
	t := cde.Table{Columns: append([]string{}, header...)}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		// GetRows drops trailing empty cells; Decode pads short rows
		rec, err := x.codec.Decode(header, row)
		if err != nil {
			return cde.Table{}, fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func (x *xlsxFormat) Save(_ context.Context, path string, t cde.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := x.sheet
	if sheet == "" {
		sheet = defaultSheet
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	cols := t.ColumnSet()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(cols) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		_ = f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for i, r := range t.Records {
		values := x.codec.Encode(r, cols)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
