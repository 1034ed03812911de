package chartset

import (
	"math"
	"strconv"
	"strings"
)

// Style carries the drawing attributes a renderer needs. Larger Order draws
// beneath smaller Order.
type Style struct {
	Color      string  `json:"color,omitempty"`
	Fill       string  `json:"fill,omitempty"`
	Dash       []int   `json:"dash,omitempty"`
	Width      float64 `json:"width,omitempty"`
	HidePoints bool    `json:"hide_points,omitempty"`
	SpanGaps   bool    `json:"span_gaps"`
	Tension    float64 `json:"tension,omitempty"`
	Order      int     `json:"order,omitempty"`
}

// Marker maps a label token to a group.
type Marker struct {
	Token string `json:"token" yaml:"token" toml:"token"`
	Group Group  `json:"group" yaml:"group" toml:"group"`
}

// MarkerTable is checked in order; the first token contained in a label
// wins. "female" must precede "male".
type MarkerTable []Marker

// DefaultMarkers covers the site's Japanese gender suffixes and their
// English equivalents.
var DefaultMarkers = MarkerTable{
	{Token: "女", Group: GroupFemale},
	{Token: "男", Group: GroupMale},
	{Token: "female", Group: GroupFemale},
	{Token: "male", Group: GroupMale},
}

// Classify returns the group of the first matching token, or GroupNone.
func (t MarkerTable) Classify(label string) Group {
	lower := strings.ToLower(label)
	for _, m := range t {
		if m.Token != "" && strings.Contains(lower, strings.ToLower(m.Token)) {
			return m.Group
		}
	}
	return GroupNone
}

// StyleTable maps a group to the colors used for it. Groups without an
// entry keep their own colors.
type StyleTable map[Group]Style

// DefaultStyles are the blue / pink pair used across the site.
var DefaultStyles = StyleTable{
	GroupMale:   {Color: "rgba(54, 162, 235, 1)", Fill: "rgba(54, 162, 235, 0.2)"},
	GroupFemale: {Color: "rgba(255, 99, 132, 1)", Fill: "rgba(255, 99, 132, 0.2)"},
}

// Apply returns s restyled for its group.
func (t StyleTable) Apply(s Series) Series {
	if gs, ok := t[s.Group]; ok {
		s.Style.Color = gs.Color
		s.Style.Fill = gs.Fill
	}
	return s
}

// EventColors are fixed per-event line colors; FallbackColors are cycled
// for anything else.
var (
	EventColors = map[string]string{
		"AR60":   "rgba(218, 165, 32, 1)",
		"SB3x20": "rgba(0, 100, 0, 1)",
		"P60":    "rgba(184, 0, 163, 1)",
		"AP60":   "rgba(13, 0, 255, 1)",
		"BP":     "rgba(108, 92, 231, 1)",
	}
	FallbackColors = []string{"rgba(54, 162, 235, 1)", "rgba(255, 99, 132, 1)", "rgba(75, 192, 192, 1)"}
)

// EventColor returns the color for event, cycling the fallback palette by
// index for unknown events.
func EventColor(event string, index int) string {
	if c, ok := EventColors[event]; ok {
		return c
	}
	if index < 0 {
		index = -index
	}
	return FallbackColors[index%len(FallbackColors)]
}

// Translucent turns "rgba(r, g, b, 1)" into "rgba(r, g, b, alpha)". Other
// strings are returned unchanged.
func Translucent(color, alpha string) string {
	if strings.HasPrefix(color, "rgba(") && strings.HasSuffix(color, ", 1)") {
		return strings.TrimSuffix(color, "1)") + alpha + ")"
	}
	return color
}

// RGBA is a parsed color. A is in [0, 1].
type RGBA struct {
	R, G, B uint8
	A       float64
}

// ParseColor reads "#rgb", "#rrggbb", "rgb(r, g, b)" and "rgba(r, g, b, a)".
func ParseColor(s string) (RGBA, bool) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHex(hex)
	}
	var inner string
	switch {
	case strings.HasPrefix(s, "rgba("):
		inner = strings.TrimPrefix(s, "rgba(")
	case strings.HasPrefix(s, "rgb("):
		inner = strings.TrimPrefix(s, "rgb(")
	default:
		return RGBA{}, false
	}
	inner, ok := strings.CutSuffix(inner, ")")
	if !ok {
		return RGBA{}, false
	}
	parts := strings.Split(inner, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return RGBA{}, false
	}
	var rgb [3]uint8
	for i := range rgb {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return RGBA{}, false
		}
		rgb[i] = uint8(n)
	}
	c := RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 1}
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || math.IsNaN(a) || a < 0 || a > 1 {
			return RGBA{}, false
		}
		c.A = a
	}
	return c, true
}

func parseHex(hex string) (RGBA, bool) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, false
	}
	return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 1}, true
}
