package sheet

import (
	"io"

	"github.com/xuri/excelize/v2"

	"tinbox/internal/model"
)

// WriteWorkbook writes records as a single-sheet XLSX document in the
// same layout as the xlsx backend.
func WriteWorkbook(w io.Writer, sheetName string, records []model.Donation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	header := Header
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, d := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := EncodeRow(d)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
