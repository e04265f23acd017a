// Package sheet places typed values into a worksheet. It holds no conversion
// policy: callers decide what to write and the Writer only writes it.
package sheet

import "time"

// DateFormat is the display format applied to every date cell.
const DateFormat = "yyyy-mm-dd"

// Writer is the set of worksheet primitives the converter needs.
// Rows and columns are zero-based.
type Writer interface {
	SetString(row, col int, value string) error
	SetNumber(row, col int, value float64) error
	SetDate(row, col int, value time.Time) error
	SetColumnWidth(col int, width float64) error
	// AddListValidation restricts column col, rows firstRow..lastRow inclusive,
	// to the given items.
	AddListValidation(col, firstRow, lastRow int, items []string) error
}
