package converter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/sheet"
	"github.com/nconklindev/kbnsheet/internal/types"

	"go.uber.org/zap"
)

const progressInterval = 100

// Transcode copies every record from src into w. The first opts.HeaderRows
// records are written as text; the rest are coerced per defs. Once all rows
// are written, each category column gets a dropdown over the data rows.
// onRow, when set, is called after each data row.
func Transcode(src RowSource, w sheet.Writer, defs schema.Schema, opts Options, onRow func(row int)) (*types.ConversionResult, error) {
	logger := opts.logger()

	for col, def := range defs {
		if def.Width <= 0 {
			continue
		}
		if err := w.SetColumnWidth(col, def.Width); err != nil {
			return nil, fmt.Errorf("set width of column %d: %w", col, err)
		}
	}

	t := &transcoder{
		w:         w,
		defs:      defs,
		collector: NewCollector(opts.maxListLength()),
		opts:      opts,
	}

	row := 0
	lastDataRow := -1
	for ; ; row++ {
		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}

		if row < opts.HeaderRows {
			if err := t.writeHeader(row, record); err != nil {
				return nil, fmt.Errorf("write header row %d: %w", row+1, err)
			}
			continue
		}

		if err := t.writeRecord(row, record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row+1, err)
		}
		lastDataRow = row

		if onRow != nil {
			onRow(row)
		}
	}

	result := &types.ConversionResult{
		HeaderRows: min(row, opts.HeaderRows),
	}

	if lastDataRow < 0 {
		logger.Info("no data rows, skipping dropdowns")
		return result, nil
	}
	result.RowsProcessed = lastDataRow - opts.HeaderRows + 1

	validations, err := emitValidations(w, defs, t.collector, opts.HeaderRows, lastDataRow, opts)
	if err != nil {
		return nil, err
	}
	result.Validations = validations

	return result, nil
}

// Convert transcodes the delimited file at inputFile into an xlsx workbook
// at outputFile. Progress, as the fraction of input bytes consumed, is sent
// on progressChan without blocking.
func Convert(inputFile, outputFile string, defs schema.Schema, opts Options, progressChan chan<- float64) (*types.ConversionResult, error) {
	logger := opts.logger().With(zap.String("input", inputFile), zap.String("output", outputFile))
	opts.Logger = logger

	inFile, err := os.Open(inputFile)
	if err != nil {
		return nil, err
	}
	defer inFile.Close()

	info, err := inFile.Stat()
	if err != nil {
		return nil, err
	}

	counter := &countingReader{r: inFile}
	src, err := NewCSVSource(counter, opts)
	if err != nil {
		return nil, err
	}

	book, err := sheet.NewXLSX(opts.SheetName)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	reportProgress := func(fraction float64) {
		if progressChan == nil {
			return
		}
		select {
		case progressChan <- fraction:
		default:
		}
	}

	logger.Info("conversion started", zap.Int("columns", len(defs)), zap.Int("header_rows", opts.HeaderRows))

	var onRow func(int)
	if progressChan != nil && info.Size() > 0 {
		onRow = func(row int) {
			if row%progressInterval == 0 {
				reportProgress(float64(counter.n) / float64(info.Size()))
			}
		}
	}

	result, err := Transcode(src, book, defs, opts, onRow)
	if err != nil {
		return nil, err
	}

	if err := book.SaveAs(outputFile); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	reportProgress(1)

	result.InputFile = inputFile
	result.OutputFile = outputFile

	logger.Info("conversion finished",
		zap.Int("rows", result.RowsProcessed),
		zap.Int("dropdowns", result.Dropdowns()),
	)

	return result, nil
}

// ConvertStream transcodes delimited text from r and writes the workbook to w.
func ConvertStream(r io.Reader, w io.Writer, defs schema.Schema, opts Options) (*types.ConversionResult, error) {
	src, err := NewCSVSource(r, opts)
	if err != nil {
		return nil, err
	}

	book, err := sheet.NewXLSX(opts.SheetName)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	result, err := Transcode(src, book, defs, opts, nil)
	if err != nil {
		return nil, err
	}

	if _, err := book.WriteTo(w); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	opts.logger().Info("conversion finished",
		zap.Int("rows", result.RowsProcessed),
		zap.Int("dropdowns", result.Dropdowns()),
	)

	return result, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
