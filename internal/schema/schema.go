package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxColumnWidth is the widest column a worksheet accepts.
const MaxColumnWidth = 255

// MaxCategoryValue is the largest value allowed in a fixed category domain.
const MaxCategoryValue = 255

// ErrInvalidSchema is wrapped by every schema validation error.
var ErrInvalidSchema = errors.New("invalid schema")

// ColumnDefinition governs the output column at the same index as the input field.
type ColumnDefinition struct {
	Width float64
	Type  ColumnType
	// Domain is the fixed set of category values, sorted ascending.
	// A nil Domain means the values are discovered from the data.
	Domain []uint8
}

// HasDomain reports whether the column uses a fixed category domain.
func (d ColumnDefinition) HasDomain() bool {
	return d.Domain != nil
}

// Schema is the ordered list of column definitions for one conversion.
type Schema []ColumnDefinition

// At returns the definition for column i. Columns beyond the schema are Text.
func (s Schema) At(i int) ColumnDefinition {
	if i < 0 || i >= len(s) {
		return ColumnDefinition{Type: Text}
	}
	return s[i]
}

// Descriptor is the structured, serializable form of a ColumnDefinition.
type Descriptor struct {
	Width     float64 `json:"width" yaml:"width"`
	ColType   string  `json:"col_type" yaml:"col_type"`
	KbnValues []int   `json:"kbn_values,omitempty" yaml:"kbn_values,omitempty"`
}

// Parse interprets a schema description. A description starting with '['
// is a JSON descriptor list; anything else is a comma separated type list.
func Parse(desc string) (Schema, error) {
	trimmed := strings.TrimSpace(desc)
	if strings.HasPrefix(trimmed, "[") {
		return ParseDescriptors([]byte(trimmed))
	}
	return ParseTypeList(desc), nil
}

// ParseTypeList parses a comma separated list of type tags such as
// "str,int,date,kbn_list". It never fails: unknown tags become Text.
func ParseTypeList(desc string) Schema {
	tokens := strings.Split(desc, ",")

	// "str,\nint,\n" ends with a delimiter, not an extra column
	if last := len(tokens) - 1; last > 0 && strings.TrimSpace(tokens[last]) == "" {
		tokens = tokens[:last]
	}
	if len(tokens) == 1 && strings.TrimSpace(tokens[0]) == "" {
		return Schema{}
	}

	defs := make(Schema, 0, len(tokens))
	for _, tok := range tokens {
		defs = append(defs, ColumnDefinition{Type: ParseColumnType(tok)})
	}
	return defs
}

// ParseDescriptors decodes a JSON array of column descriptors.
func ParseDescriptors(data []byte) (Schema, error) {
	var descs []Descriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("%w: decode descriptors: %v", ErrInvalidSchema, err)
	}
	return FromDescriptors(descs)
}

// FromDescriptors validates descriptors and converts them to a Schema.
func FromDescriptors(descs []Descriptor) (Schema, error) {
	defs := make(Schema, 0, len(descs))
	for i, d := range descs {
		def, err := d.definition()
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %v", ErrInvalidSchema, i, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (d Descriptor) definition() (ColumnDefinition, error) {
	if d.Width < 0 || d.Width > MaxColumnWidth {
		return ColumnDefinition{}, fmt.Errorf("width %v out of range [0, %d]", d.Width, MaxColumnWidth)
	}

	def := ColumnDefinition{
		Width: d.Width,
		Type:  ParseColumnType(d.ColType),
	}

	if d.KbnValues != nil {
		domain := make([]uint8, 0, len(d.KbnValues))
		for _, v := range d.KbnValues {
			if v < 0 || v > MaxCategoryValue {
				return ColumnDefinition{}, fmt.Errorf("kbn value %d out of range [0, %d]", v, MaxCategoryValue)
			}
			domain = append(domain, uint8(v))
		}
		slices.Sort(domain)
		def.Domain = slices.Compact(domain)
	}

	return def, nil
}

// Descriptors converts the schema back to its structured form.
func (s Schema) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(s))
	for _, def := range s {
		d := Descriptor{Width: def.Width, ColType: def.Type.Tag()}
		if def.Domain != nil {
			d.KbnValues = make([]int, 0, len(def.Domain))
			for _, v := range def.Domain {
				d.KbnValues = append(d.KbnValues, int(v))
			}
		}
		descs = append(descs, d)
	}
	return descs
}

// MarshalYAML renders the schema as a YAML descriptor list.
func (s Schema) MarshalYAML() (interface{}, error) {
	return s.Descriptors(), nil
}

// LoadFile reads a schema from disk. YAML and JSON files hold descriptor
// lists; other files hold a schema description understood by Parse.
func LoadFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var descs []Descriptor
		if err := yaml.Unmarshal(data, &descs); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidSchema, filepath.Base(path), err)
		}
		return FromDescriptors(descs)
	case ".json":
		return ParseDescriptors(data)
	default:
		return Parse(string(data))
	}
}
