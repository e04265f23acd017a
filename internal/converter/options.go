package converter

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHeaderRows = 1
	DefaultDelimiter  = ','
	DefaultEncoding   = "utf-8"

	// DefaultMaxListLength keeps dropdown lists under the 255 character
	// ceiling worksheets enforce on literal list validations.
	DefaultMaxListLength = 250
)

// DateFallback selects what an unparsable date field becomes.
type DateFallback int

const (
	// DateFallbackText writes the original field as text.
	DateFallbackText DateFallback = iota
	// DateFallbackDefault writes Options.DefaultDate instead.
	DateFallbackDefault
)

// DefaultFallbackDate is used by DateFallbackDefault when no date is configured.
var DefaultFallbackDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Options controls one conversion run.
type Options struct {
	HeaderRows    int
	Delimiter     rune
	Encoding      string
	LazyQuotes    bool
	SheetName     string
	MaxListLength int
	DateFallback  DateFallback
	DefaultDate   time.Time
	Logger        *zap.Logger
}

// DefaultOptions returns options for a comma separated UTF-8 file with a
// single header row.
func DefaultOptions() Options {
	return Options{
		HeaderRows:    DefaultHeaderRows,
		Delimiter:     DefaultDelimiter,
		Encoding:      DefaultEncoding,
		MaxListLength: DefaultMaxListLength,
	}
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

func (o Options) maxListLength() int {
	if o.MaxListLength <= 0 {
		return DefaultMaxListLength
	}
	return o.MaxListLength
}

func (o Options) fallbackDate() time.Time {
	if o.DefaultDate.IsZero() {
		return DefaultFallbackDate
	}
	return o.DefaultDate
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
