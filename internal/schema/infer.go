package schema

import (
	"strings"

	"github.com/nconklindev/kbnsheet/internal/coerce"
	"github.com/nconklindev/kbnsheet/internal/types"
)

const (
	// RowDetectionLimit is how many data rows Infer samples per column.
	RowDetectionLimit = 20

	// CategoryCardinalityLimit is the most distinct values a column may
	// show in the sample and still be treated as a category.
	CategoryCardinalityLimit = 5
)

// Infer guesses a column type for every header from the sample rows.
// Empty cells are ignored; a column with no sampled values stays Text.
func Infer(data *types.FileData) Schema {
	defs := make(Schema, len(data.Headers))

	for i := range data.Headers {
		defs[i] = ColumnDefinition{Type: inferColumn(data.Rows, i)}
	}

	return defs
}

func inferColumn(rows [][]string, col int) ColumnType {
	allNumbers, allDates := true, true
	checkedRows := 0
	distinct := make(map[string]struct{})

	for j := 0; j < len(rows) && j < RowDetectionLimit; j++ {
		if col >= len(rows[j]) {
			continue
		}
		val := strings.TrimSpace(rows[j][col])
		if val == "" {
			continue
		}

		checkedRows++
		distinct[val] = struct{}{}

		if allNumbers {
			if _, ok := coerce.Number(val); !ok {
				allNumbers = false
			}
		}
		if allDates {
			if _, ok := coerce.Date(val); !ok {
				allDates = false
			}
		}
	}

	if checkedRows == 0 {
		return Text
	}

	// Repeated values from a small set read as a category, even when numeric
	if checkedRows >= 2 && len(distinct) < checkedRows && len(distinct) <= CategoryCardinalityLimit {
		return Category
	}

	switch {
	case allDates:
		return Date
	case allNumbers:
		return Integer
	default:
		return Text
	}
}
