// Package chartset builds the list of line series a chart draws: data
// series with gaps, at most one reference line per category, and the
// label-driven styling used by grouped overview charts.
package chartset

import "strings"

// Group is the explicit grouping of a series, set when the series is built.
type Group string

const (
	GroupNone   Group = ""
	GroupMale   Group = "male"
	GroupFemale Group = "female"
	GroupMixed  Group = "mixed"
)

// Kind separates measured data from synthetic reference lines.
type Kind string

const (
	KindData      Kind = "data"
	KindReference Kind = "reference"
)

// Point is one x-label with an optional value. A nil Y is a gap.
type Point struct {
	X string   `json:"x"`
	Y *float64 `json:"y"`
}

// Series is one line on a chart.
type Series struct {
	Label    string  `json:"label"`
	Event    string  `json:"event,omitempty"`
	Group    Group   `json:"group,omitempty"`
	Kind     Kind    `json:"kind"`
	Category string  `json:"category,omitempty"` // reference category, empty for data
	Points   []Point `json:"points"`
	Style    Style   `json:"style"`
}

// IsReference reports whether s is a synthetic reference line.
func (s Series) IsReference() bool { return s.Kind == KindReference }

// ValuesOn returns the series values aligned to axis. Labels the series has
// no point for come back as nil.
func (s Series) ValuesOn(axis []string) []*float64 {
	byX := make(map[string]*float64, len(s.Points))
	for _, p := range s.Points {
		byX[p.X] = p.Y
	}
	out := make([]*float64, len(axis))
	for i, x := range axis {
		out[i] = byX[x]
	}
	return out
}

// Present returns the number of non-gap points.
func (s Series) Present() int {
	n := 0
	for _, p := range s.Points {
		if p.Y != nil {
			n++
		}
	}
	return n
}

// Value is a convenience for building points.
func Value(v float64) *float64 { return &v }

// NewSeries pairs labels with values. Values beyond len(labels) are dropped,
// missing values are gaps.
func NewSeries(label string, labels []string, values []*float64) Series {
	pts := make([]Point, len(labels))
	for i, x := range labels {
		pts[i] = Point{X: x}
		if i < len(values) {
			pts[i].Y = values[i]
		}
	}
	return Series{Label: label, Kind: KindData, Points: pts, Style: Style{SpanGaps: true}}
}

// Axis returns the ordered union of x-labels across series, in order of
// first appearance.
func Axis(series []Series) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range series {
		for _, p := range s.Points {
			if _, ok := seen[p.X]; ok {
				continue
			}
			seen[p.X] = struct{}{}
			out = append(out, p.X)
		}
	}
	return out
}

// FromLabel builds a data series from a legacy "<event> <marker>" label
// such as "AR60 男", filling Event and Group once so styling never has to
// look at the label again.
func FromLabel(label string, labels []string, values []*float64, markers MarkerTable) Series {
	s := NewSeries(label, labels, values)
	if f := strings.Fields(label); len(f) > 0 {
		s.Event = f[0]
	}
	s.Group = markers.Classify(label)
	return s
}
