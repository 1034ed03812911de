package chartset

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Reference categories used by the site.
const (
	TeamGoal     = "team-goal"
	PersonalGoal = "personal-goal"
)

// ReferenceLine is a constant horizontal line for one category.
type ReferenceLine struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// ReferenceKind describes how a reference category is labeled and drawn.
type ReferenceKind struct {
	Label string
	Style Style
}

// ReferenceTable maps a category to its kind. New categories need only an
// entry here.
type ReferenceTable map[string]ReferenceKind

// DefaultReferences draws both goals dashed and behind the data lines.
var DefaultReferences = ReferenceTable{
	TeamGoal: {
		Label: "チーム目標",
		Style: Style{Color: "rgba(220, 53, 69, 0.8)", Dash: []int{10, 5}, Width: 2, HidePoints: true, SpanGaps: true, Order: 1},
	},
	PersonalGoal: {
		Label: "個人目標",
		Style: Style{Color: "rgba(40, 167, 69, 1)", Dash: []int{5, 5}, Width: 2, HidePoints: true, SpanGaps: true, Order: 1},
	},
}

var genericReference = Style{Color: "rgba(99, 110, 114, 1)", Dash: []int{5, 5}, Width: 2, HidePoints: true, SpanGaps: true, Order: 1}

// Kind returns the kind for category, or a generic dashed kind labeled with
// the category itself.
func (t ReferenceTable) Kind(category string) ReferenceKind {
	if k, ok := t[category]; ok {
		return k
	}
	return ReferenceKind{Label: category, Style: genericReference}
}

// TeamGoalLabel names the team goal line after the player's gender.
func TeamGoalLabel(gender string) string {
	switch gender {
	case "男":
		return "男子目標"
	case "女":
		return "女子目標"
	default:
		return "チーム目標"
	}
}

// Compose returns the series to render for base and an optional reference
// value of category.
//
// With ref nil the result is base minus any reference series of category.
// Otherwise that category's reference series is replaced by exactly one
// constant line spanning Axis(base), placed ahead of the data series so it
// draws beneath them.
func Compose(base []Series, ref *float64, category string) []Series {
	if ref == nil {
		return spanGaps(withoutReference(base, category))
	}
	return ComposeLine(base, ReferenceLine{Value: *ref, Category: category})
}

// ComposeLine is Compose with an explicit line. An empty Label falls back to
// the category's label in DefaultReferences.
func ComposeLine(base []Series, line ReferenceLine) []Series {
	kind := DefaultReferences.Kind(line.Category)
	if line.Label == "" {
		line.Label = kind.Label
	}

	kept := withoutReference(base, line.Category)
	axis := Axis(kept)
	ref := Series{
		Label:    line.Label,
		Kind:     KindReference,
		Category: line.Category,
		Points:   make([]Point, len(axis)),
		Style:    kind.Style,
	}
	ref.Style.Dash = slices.Clone(kind.Style.Dash)
	for i, x := range axis {
		ref.Points[i] = Point{X: x, Y: Value(line.Value)}
	}

	out := make([]Series, 0, len(kept)+1)
	for _, s := range kept {
		if s.IsReference() {
			out = append(out, s)
		}
	}
	out = append(out, ref)
	for _, s := range kept {
		if !s.IsReference() {
			out = append(out, s)
		}
	}
	return spanGaps(out)
}

// Reference returns the reference series of category, if any.
func Reference(series []Series, category string) (Series, bool) {
	for _, s := range series {
		if s.IsReference() && s.Category == category {
			return s, true
		}
	}
	return Series{}, false
}

func withoutReference(base []Series, category string) []Series {
	if _, ok := Reference(base, category); !ok {
		return slices.Clone(base)
	}
	out := make([]Series, 0, len(base))
	for _, s := range base {
		if s.IsReference() && s.Category == category {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Overview selects the series of event for a grouped overview chart,
// restyles them from styles and clears any dash pattern.
func Overview(all []Series, event string, styles StyleTable) []Series {
	var out []Series
	for _, s := range all {
		if s.IsReference() || s.Event != event {
			continue
		}
		s = styles.Apply(s)
		s.Style.Dash = nil
		out = append(out, s)
	}
	return spanGaps(out)
}

// spanGaps marks every series in out to draw across absent points. out must
// not alias the caller's slice.
func spanGaps(out []Series) []Series {
	for i := range out {
		out[i].Style.SpanGaps = true
	}
	return out
}

// ParseReference reads a user-entered target. Anything that is not a finite
// number, including the empty string, is absent. Full-width digits are
// accepted.
func ParseReference(input string) *float64 {
	s := strings.TrimSpace(width.Fold.String(input))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
