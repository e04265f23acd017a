package converter

import (
	"fmt"
	"time"
)

type cellKind string

const (
	kindText   cellKind = "text"
	kindNumber cellKind = "number"
	kindDate   cellKind = "date"
)

type cell struct {
	Kind  cellKind
	Value string
}

type listValidation struct {
	Col, FirstRow, LastRow int
	Items                  []string
}

// recordingWriter keeps every write in memory so tests can inspect the
// cell kinds the transcoder chose.
type recordingWriter struct {
	cells       map[[2]int]cell
	widths      map[int]float64
	validations []listValidation
	failAt      *[2]int
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		cells:  make(map[[2]int]cell),
		widths: make(map[int]float64),
	}
}

func (w *recordingWriter) put(row, col int, c cell) error {
	if w.failAt != nil && *w.failAt == [2]int{row, col} {
		return fmt.Errorf("cell %d,%d rejected", row, col)
	}
	w.cells[[2]int{row, col}] = c
	return nil
}

func (w *recordingWriter) SetString(row, col int, value string) error {
	return w.put(row, col, cell{kindText, value})
}

func (w *recordingWriter) SetNumber(row, col int, value float64) error {
	return w.put(row, col, cell{kindNumber, fmt.Sprint(value)})
}

func (w *recordingWriter) SetDate(row, col int, value time.Time) error {
	return w.put(row, col, cell{kindDate, value.Format("2006-01-02")})
}

func (w *recordingWriter) SetColumnWidth(col int, width float64) error {
	w.widths[col] = width
	return nil
}

func (w *recordingWriter) AddListValidation(col, firstRow, lastRow int, items []string) error {
	w.validations = append(w.validations, listValidation{col, firstRow, lastRow, items})
	return nil
}

// grid returns rows x cols of recorded cells; unwritten cells are zero.
func (w *recordingWriter) grid(rows, cols int) [][]cell {
	g := make([][]cell, rows)
	for r := range g {
		g[r] = make([]cell, cols)
		for c := range g[r] {
			g[r][c] = w.cells[[2]int{r, c}]
		}
	}
	return g
}

func text(v string) cell   { return cell{kindText, v} }
func number(v string) cell { return cell{kindNumber, v} }
func date(v string) cell   { return cell{kindDate, v} }
