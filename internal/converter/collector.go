package converter

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Collector accumulates the distinct values seen in each discovery-mode
// category column. A column whose serialized list grows past the limit is
// dropped and stops collecting.
type Collector struct {
	limit   int
	columns map[int]*valueSet
}

type valueSet struct {
	values map[string]struct{}
	length int
	over   bool
}

// NewCollector returns a Collector whose lists may serialize to at most
// limit characters.
func NewCollector(limit int) *Collector {
	return &Collector{
		limit:   limit,
		columns: make(map[int]*valueSet),
	}
}

// Observe records value for column col. Empty values are ignored.
func (c *Collector) Observe(col int, value string) {
	if value == "" {
		return
	}

	set, ok := c.columns[col]
	if !ok {
		set = &valueSet{values: make(map[string]struct{})}
		c.columns[col] = set
	}
	if set.over {
		return
	}
	if _, seen := set.values[value]; seen {
		return
	}

	if len(set.values) > 0 {
		set.length++
	}
	set.length += listLength(value)
	if set.length > c.limit {
		set.over = true
		set.values = nil
		return
	}

	// Clone so the set does not pin the whole input record
	set.values[strings.Clone(value)] = struct{}{}
}

// List returns the sorted values collected for col and whether the list
// stayed within the limit.
func (c *Collector) List(col int) ([]string, bool) {
	set, ok := c.columns[col]
	if !ok {
		return nil, true
	}
	if set.over {
		return nil, false
	}

	items := make([]string, 0, len(set.values))
	for v := range set.values {
		items = append(items, v)
	}
	slices.Sort(items)
	return items, true
}

// domainList renders a fixed category domain in ascending numeric order.
func domainList(domain []uint8) []string {
	sorted := slices.Clone(domain)
	slices.Sort(sorted)

	items := make([]string, 0, len(sorted))
	for _, v := range slices.Compact(sorted) {
		items = append(items, strconv.Itoa(int(v)))
	}
	return items
}

// joinedLength is the length of items joined with single separators, in the
// UTF-16 units a worksheet counts.
func joinedLength(items []string) int {
	if len(items) == 0 {
		return 0
	}
	n := len(items) - 1
	for _, item := range items {
		n += listLength(item)
	}
	return n
}

func listLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
