package types

// ConversionResult summarises one completed conversion run.
type ConversionResult struct {
	InputFile     string
	OutputFile    string
	HeaderRows    int
	RowsProcessed int
	Validations   []ValidationResult
}

// Dropdowns counts the validations that were attached.
func (r *ConversionResult) Dropdowns() int {
	n := 0
	for _, v := range r.Validations {
		if !v.Skipped {
			n++
		}
	}
	return n
}

// ValidationResult records what happened to one category column's dropdown.
type ValidationResult struct {
	Column  int
	Range   string
	Items   []string
	Skipped bool
	Reason  string
}

// FileData is a preview of an input file: its header and sample rows.
type FileData struct {
	Headers []string
	Rows    [][]string
}
