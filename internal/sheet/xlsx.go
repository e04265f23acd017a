package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the name excelize gives the first worksheet.
const DefaultSheetName = "Sheet1"

// XLSX writes a single worksheet of an in-memory excelize workbook.
type XLSX struct {
	file      *excelize.File
	sheet     string
	dateStyle int
}

// NewXLSX creates a workbook with one worksheet named sheetName.
func NewXLSX(sheetName string) (*XLSX, error) {
	f := excelize.NewFile()

	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if current := f.GetSheetName(0); current != sheetName {
		if err := f.SetSheetName(current, sheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	dateFormat := DateFormat
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create date style: %w", err)
	}

	return &XLSX{file: f, sheet: sheetName, dateStyle: style}, nil
}

// SheetName returns the worksheet being written.
func (x *XLSX) SheetName() string {
	return x.sheet
}

func (x *XLSX) SetString(row, col int, value string) error {
	cell, err := CellName(row, col)
	if err != nil {
		return err
	}
	return x.file.SetCellStr(x.sheet, cell, value)
}

func (x *XLSX) SetNumber(row, col int, value float64) error {
	cell, err := CellName(row, col)
	if err != nil {
		return err
	}
	return x.file.SetCellFloat(x.sheet, cell, value, -1, 64)
}

func (x *XLSX) SetDate(row, col int, value time.Time) error {
	cell, err := CellName(row, col)
	if err != nil {
		return err
	}
	if err := x.file.SetCellValue(x.sheet, cell, value); err != nil {
		return err
	}
	return x.file.SetCellStyle(x.sheet, cell, cell, x.dateStyle)
}

func (x *XLSX) SetColumnWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return x.file.SetColWidth(x.sheet, name, name, width)
}

func (x *XLSX) AddListValidation(col, firstRow, lastRow int, items []string) error {
	sqref, err := RangeName(col, firstRow, lastRow)
	if err != nil {
		return err
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetDropList(items); err != nil {
		return fmt.Errorf("drop list for %s: %w", sqref, err)
	}
	return x.file.AddDataValidation(x.sheet, dv)
}

// SaveAs writes the workbook to path.
func (x *XLSX) SaveAs(path string) error {
	return x.file.SaveAs(path)
}

// WriteTo writes the workbook to w.
func (x *XLSX) WriteTo(w io.Writer) (int64, error) {
	return x.file.WriteTo(w)
}

// Close releases the workbook's temporary resources.
func (x *XLSX) Close() error {
	return x.file.Close()
}

// CellName converts zero-based coordinates to an A1 reference.
func CellName(row, col int) (string, error) {
	return excelize.CoordinatesToCellName(col+1, row+1)
}

// RangeName returns the A1 range covering one column from firstRow to lastRow.
func RangeName(col, firstRow, lastRow int) (string, error) {
	from, err := CellName(firstRow, col)
	if err != nil {
		return "", err
	}
	to, err := CellName(lastRow, col)
	if err != nil {
		return "", err
	}
	return from + ":" + to, nil
}
