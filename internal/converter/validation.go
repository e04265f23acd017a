package converter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/sheet"
	"github.com/nconklindev/kbnsheet/internal/types"

	"go.uber.org/zap"
)

// Reasons recorded on skipped validations.
const (
	ReasonNoValues      = "no values"
	ReasonTooLong       = "list too long"
	ReasonListSeparator = "value contains list separator"
	ReasonFormulaPrefix = "value starts with formula prefix"
)

// emitValidations attaches one dropdown per category column over rows
// firstRow..lastRow. Columns whose list is empty, too long, or not
// expressible as a literal list are skipped and reported.
func emitValidations(w sheet.Writer, defs schema.Schema, collector *Collector, firstRow, lastRow int, opts Options) ([]types.ValidationResult, error) {
	logger := opts.logger()
	limit := opts.maxListLength()

	var results []types.ValidationResult
	for col, def := range defs {
		if def.Type != schema.Category {
			continue
		}

		rng, err := sheet.RangeName(col, firstRow, lastRow)
		if err != nil {
			return nil, err
		}
		res := types.ValidationResult{Column: col, Range: rng}

		var items []string
		within := true
		if def.HasDomain() {
			items = domainList(def.Domain)
		} else {
			items, within = collector.List(col)
		}

		switch {
		case !within || joinedLength(items) > limit:
			res.Skipped, res.Reason = true, ReasonTooLong
		case len(items) == 0:
			res.Skipped, res.Reason = true, ReasonNoValues
		case slices.ContainsFunc(items, func(s string) bool { return strings.Contains(s, ",") }):
			res.Skipped, res.Reason = true, ReasonListSeparator
		case strings.HasPrefix(items[0], "="):
			// A joined list starting with '=' is stored as a formula.
			res.Skipped, res.Reason = true, ReasonFormulaPrefix
		}

		if res.Skipped {
			logger.Warn("dropdown skipped",
				zap.Int("column", col),
				zap.String("range", rng),
				zap.String("reason", res.Reason),
				zap.Int("limit", limit),
			)
			results = append(results, res)
			continue
		}

		if err := w.AddListValidation(col, firstRow, lastRow, items); err != nil {
			return nil, fmt.Errorf("add validation for column %d: %w", col, err)
		}
		res.Items = items
		logger.Debug("dropdown added",
			zap.Int("column", col),
			zap.String("range", rng),
			zap.Int("items", len(items)),
		)
		results = append(results, res)
	}

	return results, nil
}
