package converter

import (
	"slices"

	"github.com/nconklindev/kbnsheet/internal/coerce"
	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/sheet"
)

// transcoder writes each field as the cell its column type calls for.
// Coercion failures never surface; only writer errors do.
type transcoder struct {
	w         sheet.Writer
	defs      schema.Schema
	collector *Collector
	opts      Options
}

func (t *transcoder) writeHeader(row int, record []string) error {
	for col, field := range record {
		if err := t.w.SetString(row, col, field); err != nil {
			return err
		}
	}
	return nil
}

func (t *transcoder) writeRecord(row int, record []string) error {
	for col, field := range record {
		if err := t.writeField(row, col, field); err != nil {
			return err
		}
	}
	return nil
}

func (t *transcoder) writeField(row, col int, field string) error {
	def := t.defs.At(col)

	switch def.Type {
	case schema.Integer:
		if v, ok := coerce.Number(field); ok {
			return t.w.SetNumber(row, col, v)
		}
		return t.w.SetString(row, col, field)

	case schema.Date:
		if d, ok := coerce.Date(field); ok {
			return t.w.SetDate(row, col, d)
		}
		if t.opts.DateFallback == DateFallbackDefault {
			return t.w.SetDate(row, col, t.opts.fallbackDate())
		}
		return t.w.SetString(row, col, field)

	case schema.Category:
		if def.HasDomain() {
			return t.w.SetNumber(row, col, float64(domainValue(def.Domain, field)))
		}
		t.collector.Observe(col, field)
		return t.w.SetString(row, col, field)

	default:
		return t.w.SetString(row, col, field)
	}
}

// domainValue parses field as a member of domain, or returns the zero sentinel.
func domainValue(domain []uint8, field string) uint8 {
	v, ok := coerce.CategoryValue(field)
	if !ok {
		return 0
	}
	if _, found := slices.BinarySearch(domain, v); !found {
		return 0
	}
	return v
}
