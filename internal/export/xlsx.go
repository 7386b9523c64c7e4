package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"socios/internal/core"
)

const xlsxSheet = "Socios"

// WriteXLSX writes the same selection as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, entries []core.RosterEntry, keys []string) error {
	if len(entries) == 0 {
		return ErrNoRows
	}
	fields, err := Resolve(keys)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(fields))
	for i, fd := range fields {
		header[i] = fd.Label
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		row := make([]interface{}, len(fields))
		for j, fd := range fields {
			row[j] = fd.Value(e)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
