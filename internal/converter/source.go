package converter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/types"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RowSource yields input records in order. Next returns io.EOF after the
// last record.
type RowSource interface {
	Next() ([]string, error)
}

// CSVSource reads delimited records from a decoded text stream.
type CSVSource struct {
	reader *csv.Reader
}

// NewCSVSource wraps r in a decoder for opts.Encoding and a csv.Reader using
// opts.Delimiter. Header rows are not detected; every record is returned.
func NewCSVSource(r io.Reader, opts Options) (*CSVSource, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	delim := opts.delimiter()
	if !validDelimiter(delim) {
		return nil, fmt.Errorf("invalid delimiter %q", delim)
	}

	reader := csv.NewReader(decoded)
	reader.Comma = delim
	reader.LazyQuotes = opts.LazyQuotes
	// Ragged rows are allowed; extra fields fall back to text.
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	return &CSVSource{reader: reader}, nil
}

func (s *CSVSource) Next() ([]string, error) {
	return s.reader.Read()
}

// decodeReader converts the input to UTF-8. A byte order mark always wins
// over the named encoding and is stripped.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}

	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError && utf8.ValidRune(r)
}

// ReadFileData reads the header and up to schema.RowDetectionLimit sample
// rows for previews. The last row of the header band names the columns;
// without a header band the columns are named by their letters.
func ReadFileData(filePath string, opts Options) (*types.FileData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, err := NewCSVSource(file, opts)
	if err != nil {
		return nil, err
	}

	data := &types.FileData{}
	for row := 0; row < opts.HeaderRows+schema.RowDetectionLimit; row++ {
		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		// ReuseRecord shares the backing array between reads
		record = append([]string(nil), record...)
		if row < opts.HeaderRows {
			data.Headers = record
			continue
		}
		data.Rows = append(data.Rows, record)
	}

	if len(data.Headers) == 0 && len(data.Rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	if opts.HeaderRows == 0 {
		width := 0
		for _, row := range data.Rows {
			width = max(width, len(row))
		}
		data.Headers = make([]string, width)
		for i := range data.Headers {
			data.Headers[i], _ = excelize.ColumnNumberToName(i + 1)
		}
	}

	return data, nil
}
