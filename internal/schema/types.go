package schema

import "strings"

// ColumnType selects how a column's fields are coerced.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Date
	Category
)

// Type tags accepted in schema descriptions.
const (
	TagText     = "str"
	TagInteger  = "int"
	TagDate     = "date"
	TagCategory = "kbn_list"
)

// ParseColumnType maps a type tag to a ColumnType. Matching is
// case-insensitive and unknown tags fall back to Text.
func ParseColumnType(tag string) ColumnType {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch tag {
	case TagInteger:
		return Integer
	case TagDate:
		return Date
	case TagCategory:
		return Category
	}

	// Numbered tags (kbn_list1, kbn_list2, ...) are an extension over the
	// four base tags: descriptor lists that number their category columns
	// keep their dropdowns instead of degrading to Text. Any other suffix
	// is still unknown.
	if suffix, ok := strings.CutPrefix(tag, TagCategory); ok && isDigits(suffix) {
		return Category
	}

	return Text
}

// Tag returns the canonical tag for t.
func (t ColumnType) Tag() string {
	switch t {
	case Integer:
		return TagInteger
	case Date:
		return TagDate
	case Category:
		return TagCategory
	default:
		return TagText
	}
}

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Date:
		return "Date"
	case Category:
		return "Category"
	default:
		return "Text"
	}
}

// Next cycles through the column types in declaration order.
func (t ColumnType) Next() ColumnType {
	return (t + 1) % (Category + 1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
