package models

import "strings"

// Vertical is a housing category.
type Vertical string

const (
	VerticalBoysHostel  Vertical = "BOYS_HOSTEL"
	VerticalGirlsHostel Vertical = "GIRLS_HOSTEL"
	VerticalDharamshala Vertical = "DHARAMSHALA"
)

// VerticalTable maps canonical verticals to display labels and back.
type VerticalTable struct {
	labels  map[Vertical]string
	lookups map[string]Vertical
}

// NewVerticalTable builds a table from labels plus extra legacy aliases.
func NewVerticalTable(labels map[Vertical]string, aliases map[string]Vertical) *VerticalTable {
	t := &VerticalTable{
		labels:  make(map[Vertical]string, len(labels)),
		lookups: make(map[string]Vertical, len(labels)*2+len(aliases)),
	}
	for v, label := range labels {
		t.labels[v] = label
		t.lookups[verticalKey(string(v))] = v
		t.lookups[verticalKey(label)] = v
	}
	for alias, v := range aliases {
		t.lookups[verticalKey(alias)] = v
	}
	return t
}

var defaultVerticals = NewVerticalTable(
	map[Vertical]string{
		VerticalBoysHostel:  "Boys Hostel",
		VerticalGirlsHostel: "Girls Hostel",
		VerticalDharamshala: "Dharamshala",
	},
	map[string]Vertical{
		"boys":  VerticalBoysHostel,
		"girls": VerticalGirlsHostel,
	},
)

// DefaultVerticals is the table used unless another is injected.
func DefaultVerticals() *VerticalTable {
	return defaultVerticals
}

// Label returns the display string, or the raw value for unknown verticals.
func (t *VerticalTable) Label(v Vertical) string {
	if label, ok := t.labels[v]; ok {
		return label
	}
	return string(v)
}

// Parse accepts canonical keys, labels and aliases in any case, with spaces,
// hyphens or underscores as separators.
func (t *VerticalTable) Parse(s string) (Vertical, bool) {
	v, ok := t.lookups[verticalKey(s)]
	return v, ok
}

func (t *VerticalTable) Known(v Vertical) bool {
	_, ok := t.labels[v]
	return ok
}

func (v Vertical) Label() string {
	return defaultVerticals.Label(v)
}

func verticalKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
