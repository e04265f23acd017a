package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nconklindev/kbnsheet/internal/schema"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func transcodeString(t *testing.T, input string, defs schema.Schema, opts Options) (*recordingWriter, error) {
	t.Helper()
	src, err := NewCSVSource(strings.NewReader(input), opts)
	require.NoError(t, err)

	w := newRecordingWriter()
	_, err = Transcode(src, w, defs, opts, nil)
	return w, err
}

func headerless() Options {
	opts := DefaultOptions()
	opts.HeaderRows = 0
	return opts
}

func TestTranscodeMixedColumns(t *testing.T) {
	input := "1,2020-01-01,A\n2,2020/02/02,B\n3,bad-date,C\n"
	defs := schema.ParseTypeList("int,date,kbn_list")

	src, err := NewCSVSource(strings.NewReader(input), headerless())
	require.NoError(t, err)
	w := newRecordingWriter()
	result, err := Transcode(src, w, defs, headerless(), nil)
	require.NoError(t, err)

	want := [][]cell{
		{number("1"), date("2020-01-01"), text("A")},
		{number("2"), date("2020-02-02"), text("B")},
		{number("3"), text("bad-date"), text("C")},
	}
	if diff := cmp.Diff(want, w.grid(3, 3)); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, w.validations, 1)
	assert.Equal(t, listValidation{Col: 2, FirstRow: 0, LastRow: 2, Items: []string{"A", "B", "C"}}, w.validations[0])

	assert.Equal(t, 3, result.RowsProcessed)
	assert.Equal(t, 0, result.HeaderRows)
	require.Len(t, result.Validations, 1)
	assert.Equal(t, "C1:C3", result.Validations[0].Range)
	assert.Equal(t, 1, result.Dropdowns())
}

func TestTranscodeEmptyInput(t *testing.T) {
	defs := schema.ParseTypeList("int,date,kbn_list")

	for _, headerRows := range []int{0, 1} {
		opts := DefaultOptions()
		opts.HeaderRows = headerRows

		w, err := transcodeString(t, "", defs, opts)
		require.NoError(t, err)
		assert.Empty(t, w.cells)
		assert.Empty(t, w.validations)
	}
}

func TestTranscodeHeaderOnly(t *testing.T) {
	defs := schema.ParseTypeList("int,kbn_list")

	src, err := NewCSVSource(strings.NewReader("qty,kbn\n"), DefaultOptions())
	require.NoError(t, err)
	w := newRecordingWriter()
	result, err := Transcode(src, w, defs, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, text("qty"), w.cells[[2]int{0, 0}])
	assert.Empty(t, w.validations)
	assert.Equal(t, 1, result.HeaderRows)
	assert.Zero(t, result.RowsProcessed)
	assert.Empty(t, result.Validations)
}

func TestTranscodeHeaderBandIsVerbatim(t *testing.T) {
	input := "1,2020-01-01,0\n 2 ,2020/02/02,x\n3,2020-03-03,1\n"
	defs := schema.Schema{
		{Type: schema.Integer},
		{Type: schema.Date},
		{Type: schema.Category, Domain: []uint8{0, 1}},
	}
	opts := DefaultOptions()
	opts.HeaderRows = 2

	w, err := transcodeString(t, input, defs, opts)
	require.NoError(t, err)

	want := [][]cell{
		{text("1"), text("2020-01-01"), text("0")},
		{text(" 2 "), text("2020/02/02"), text("x")},
		{number("3"), date("2020-03-03"), number("1")},
	}
	if diff := cmp.Diff(want, w.grid(3, 3)); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, w.validations, 1)
	assert.Equal(t, 2, w.validations[0].FirstRow)
	assert.Equal(t, 2, w.validations[0].LastRow)
}

func TestTranscodeIntegerColumn(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		expected cell
	}{
		{"Integer", "42", number("42")},
		{"Decimal", "1.5", number("1.5")},
		{"Padded", " 7 ", number("7")},
		{"Negative", "-3", number("-3")},
		{"Text", "abc", text("abc")},
		{"Empty", "", text("")},
		{"NaN stays text", "NaN", text("NaN")},
		{"Unit suffix", "12kg", text("12kg")},
		{"Digit separators stay text", "1_000", text("1_000")},
		{"Hex stays text", "0x1p4", text("0x1p4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newRecordingWriter()
			tr := &transcoder{w: w, defs: schema.ParseTypeList("int"), collector: NewCollector(DefaultMaxListLength)}
			require.NoError(t, tr.writeField(0, 0, tt.field))
			assert.Equal(t, tt.expected, w.cells[[2]int{0, 0}])
		})
	}
}

func TestTranscodeDateFallbackPolicies(t *testing.T) {
	defs := schema.ParseTypeList("date")

	w, err := transcodeString(t, "2021-06-30\nnot a date\n2021/07/01\n", defs, headerless())
	require.NoError(t, err)
	assert.Equal(t, []cell{date("2021-06-30"), text("not a date"), date("2021-07-01")},
		[]cell{w.cells[[2]int{0, 0}], w.cells[[2]int{1, 0}], w.cells[[2]int{2, 0}]})

	opts := headerless()
	opts.DateFallback = DateFallbackDefault
	w, err = transcodeString(t, "not a date\n", defs, opts)
	require.NoError(t, err)
	assert.Equal(t, date("1900-01-01"), w.cells[[2]int{0, 0}])

	opts.DefaultDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	w, err = transcodeString(t, "not a date\n", defs, opts)
	require.NoError(t, err)
	assert.Equal(t, date("2000-01-01"), w.cells[[2]int{0, 0}])
}

func TestTranscodeFixedDomain(t *testing.T) {
	defs := schema.Schema{{Type: schema.Category, Domain: []uint8{1, 2, 3}}}
	input := "1\n3\n 2 \n9\nabc\n\n0\n"

	w, err := transcodeString(t, input, defs, headerless())
	require.NoError(t, err)

	// encoding/csv skips the blank line, so six records remain
	var got []cell
	for row := 0; row < 6; row++ {
		got = append(got, w.cells[[2]int{row, 0}])
	}
	assert.Equal(t, []cell{number("1"), number("3"), number("2"), number("0"), number("0"), number("0")}, got)

	require.Len(t, w.validations, 1)
	assert.Equal(t, []string{"1", "2", "3"}, w.validations[0].Items)
	assert.Equal(t, 5, w.validations[0].LastRow)
}

func TestTranscodeDiscoveryRoundTrip(t *testing.T) {
	defs := schema.ParseTypeList("str,kbn_list")
	input := "id,kind\n1,beta\n2,alpha\n3,\n4,beta\n5,gamma\n6,alpha\n"

	w, err := transcodeString(t, input, defs, DefaultOptions())
	require.NoError(t, err)

	written := map[string]struct{}{}
	for row := 1; row <= 6; row++ {
		c := w.cells[[2]int{row, 1}]
		assert.Equal(t, kindText, c.Kind)
		if c.Value != "" {
			written[c.Value] = struct{}{}
		}
	}

	require.Len(t, w.validations, 1)
	v := w.validations[0]
	assert.Equal(t, 1, v.Col)
	assert.Equal(t, 1, v.FirstRow)
	assert.Equal(t, 6, v.LastRow)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, v.Items)
	assert.Len(t, v.Items, len(written))
	for _, item := range v.Items {
		assert.Contains(t, written, item)
	}
}

func TestTranscodeSkipsOversizedDropdown(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	opts := headerless()
	opts.MaxListLength = 10
	opts.Logger = zap.New(core)

	defs := schema.ParseTypeList("kbn_list,kbn_list")
	w, err := transcodeString(t, "abcdef,a\nghijkl,b\n", defs, opts)
	require.NoError(t, err)

	// Values are still written even when the dropdown is dropped
	assert.Equal(t, text("ghijkl"), w.cells[[2]int{1, 0}])

	require.Len(t, w.validations, 1)
	assert.Equal(t, 1, w.validations[0].Col)

	entries := logs.FilterMessage("dropdown skipped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].ContextMap()["column"])
	assert.Equal(t, ReasonTooLong, entries[0].ContextMap()["reason"])
}

func TestTranscodeSkipsValuesWithSeparator(t *testing.T) {
	defs := schema.ParseTypeList("kbn_list")
	w, err := transcodeString(t, "\"a,b\"\nc\n", defs, headerless())
	require.NoError(t, err)

	assert.Equal(t, text("a,b"), w.cells[[2]int{0, 0}])
	assert.Empty(t, w.validations)
}

func TestTranscodeSkipsFormulaPrefixedList(t *testing.T) {
	defs := schema.ParseTypeList("kbn_list")
	src, err := NewCSVSource(strings.NewReader("=A1\nB\nC\n"), headerless())
	require.NoError(t, err)

	w := newRecordingWriter()
	result, err := Transcode(src, w, defs, headerless(), nil)
	require.NoError(t, err)

	assert.Equal(t, text("=A1"), w.cells[[2]int{0, 0}])
	assert.Empty(t, w.validations)
	require.Len(t, result.Validations, 1)
	assert.True(t, result.Validations[0].Skipped)
	assert.Equal(t, ReasonFormulaPrefix, result.Validations[0].Reason)
}

func TestTranscodeEmptyCategoryColumnIsSkipped(t *testing.T) {
	defs := schema.Schema{
		{Type: schema.Category},
		{Type: schema.Category, Domain: []uint8{}},
	}
	src, err := NewCSVSource(strings.NewReader(",x\n,y\n"), headerless())
	require.NoError(t, err)
	w := newRecordingWriter()
	result, err := Transcode(src, w, defs, headerless(), nil)
	require.NoError(t, err)

	assert.Empty(t, w.validations)
	require.Len(t, result.Validations, 2)
	for _, v := range result.Validations {
		assert.True(t, v.Skipped)
		assert.Equal(t, ReasonNoValues, v.Reason)
	}
	assert.Equal(t, number("0"), w.cells[[2]int{0, 1}])
}

func TestTranscodeExtraFieldsAreText(t *testing.T) {
	defs := schema.ParseTypeList("int")
	w, err := transcodeString(t, "1,2,2020-01-01\n", defs, headerless())
	require.NoError(t, err)

	assert.Equal(t, []cell{number("1"), text("2"), text("2020-01-01")}, w.grid(1, 3)[0])
}

func TestTranscodeAppliesColumnWidths(t *testing.T) {
	defs := schema.Schema{{Width: 8}, {}, {Width: 12.5, Type: schema.Date}}
	w, err := transcodeString(t, "", defs, headerless())
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 8, 2: 12.5}, w.widths)
}

func TestTranscodePropagatesWriterErrors(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("1\n2\n"), headerless())
	require.NoError(t, err)

	w := newRecordingWriter()
	w.failAt = &[2]int{1, 0}
	_, err = Transcode(src, w, schema.ParseTypeList("int"), headerless(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write row 2")
}

func TestTranscodePropagatesParseErrors(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("a,\"unterminated\n"), headerless())
	require.NoError(t, err)

	_, err = Transcode(src, newRecordingWriter(), nil, headerless(), nil)
	assert.Error(t, err)
}

func TestConvertWritesWorkbook(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "output.xlsx")

	input := "\ufeffid,sales_date,kbn,kind\n1,2023-01-01,0,A\n2,2023/01/02,5,B\n3,bad-date,2,A\n"
	require.NoError(t, os.WriteFile(inputFile, []byte(input), 0o644))

	defs, err := schema.ParseDescriptors([]byte(`[
		{"width": 8, "col_type": "int"},
		{"width": 12, "col_type": "date"},
		{"width": 5, "col_type": "kbn_list1", "kbn_values": [0, 1, 2]},
		{"width": 5, "col_type": "kbn_list"}
	]`))
	require.NoError(t, err)

	progress := make(chan float64, 10)
	result, err := Convert(inputFile, outputFile, defs, DefaultOptions(), progress)
	require.NoError(t, err)

	assert.Equal(t, inputFile, result.InputFile)
	assert.Equal(t, outputFile, result.OutputFile)
	assert.Equal(t, 3, result.RowsProcessed)
	assert.Equal(t, 2, result.Dropdowns())

	close(progress)
	var last float64
	for p := range progress {
		last = p
	}
	assert.Equal(t, 1.0, last)

	f, err := excelize.OpenFile(outputFile)
	require.NoError(t, err)
	defer f.Close()

	sheetName := f.GetSheetName(0)
	expected := map[string]string{
		"A1": "id", "B1": "sales_date", "C1": "kbn", "D1": "kind",
		"A2": "1", "B2": "2023-01-01", "C2": "0", "D2": "A",
		"A3": "2", "B3": "2023-01-02", "C3": "0", "D3": "B",
		"A4": "3", "B4": "bad-date", "C4": "2", "D4": "A",
	}
	for ref, want := range expected {
		got, err := f.GetCellValue(sheetName, ref)
		require.NoError(t, err)
		assert.Equal(t, want, got, ref)
	}

	width, err := f.GetColWidth(sheetName, "B")
	require.NoError(t, err)
	assert.InDelta(t, 12, width, 0.01)

	dvs, err := f.GetDataValidations(sheetName)
	require.NoError(t, err)
	require.Len(t, dvs, 2)

	byRange := map[string]string{}
	for _, dv := range dvs {
		byRange[dv.Sqref] = dv.Formula1
	}
	assert.Contains(t, byRange["C2:C4"], "0,1,2")
	assert.Contains(t, byRange["D2:D4"], "A,B")
}

func TestConvertFormulaPrefixedValuesGetNoDropdown(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "output.xlsx")
	require.NoError(t, os.WriteFile(inputFile, []byte("=A1\nB\nC\n"), 0o644))

	result, err := Convert(inputFile, outputFile, schema.ParseTypeList("kbn_list"), headerless(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Dropdowns())

	f, err := excelize.OpenFile(outputFile)
	require.NoError(t, err)
	defer f.Close()

	sheetName := f.GetSheetName(0)
	got, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "=A1", got)

	dvs, err := f.GetDataValidations(sheetName)
	require.NoError(t, err)
	assert.Empty(t, dvs)
}

func TestConvertMissingInput(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Convert(filepath.Join(tmpDir, "nope.csv"), filepath.Join(tmpDir, "out.xlsx"), nil, DefaultOptions(), nil)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(tmpDir, "out.xlsx"))
}

func TestConvertStream(t *testing.T) {
	var out strings.Builder
	result, err := ConvertStream(strings.NewReader("kind\nx\ny\n"), &out, schema.ParseTypeList("kbn_list"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsProcessed)

	f, err := excelize.OpenReader(strings.NewReader(out.String()))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue(f.GetSheetName(0), "A3")
	require.NoError(t, err)
	assert.Equal(t, "y", got)
}
