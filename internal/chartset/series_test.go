package chartset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAxis_FirstAppearanceOrder(t *testing.T) {
	a := NewSeries("a", []string{"2024/01", "2024/03"}, nil)
	b := NewSeries("b", []string{"2024/02", "2024/03", "2024/04"}, nil)
	assert.Equal(t, []string{"2024/01", "2024/03", "2024/02", "2024/04"}, Axis([]Series{a, b}))
	assert.Nil(t, Axis(nil))
}

func TestNewSeries_ShortValuesAreGaps(t *testing.T) {
	s := NewSeries("x", []string{"a", "b"}, []*float64{Value(1)})
	assert.Equal(t, KindData, s.Kind)
	assert.Nil(t, s.Points[1].Y)
	assert.Equal(t, 1, s.Present())
}

func TestValuesOn(t *testing.T) {
	s := NewSeries("x", []string{"a", "c"}, []*float64{Value(1), Value(3)})
	got := s.ValuesOn([]string{"a", "b", "c"})
	assert.Equal(t, 1.0, *got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, 3.0, *got[2])
}

func TestClassify(t *testing.T) {
	assert.Equal(t, GroupMale, DefaultMarkers.Classify("AR60 男"))
	assert.Equal(t, GroupFemale, DefaultMarkers.Classify("AR60 女"))
	assert.Equal(t, GroupFemale, DefaultMarkers.Classify("Female squad"), "female is checked before male")
	assert.Equal(t, GroupMale, DefaultMarkers.Classify("Male squad"))
	assert.Equal(t, GroupNone, DefaultMarkers.Classify("AR60"))
	assert.Equal(t, GroupNone, MarkerTable{{Token: "", Group: GroupMale}}.Classify("AR60"))
}

func TestFromLabel(t *testing.T) {
	s := FromLabel("SB3x20 女", []string{"2024"}, []*float64{Value(1700)}, DefaultMarkers)
	assert.Equal(t, "SB3x20", s.Event)
	assert.Equal(t, GroupFemale, s.Group)
	assert.Equal(t, "SB3x20 女", s.Label)
}

func TestEventColor(t *testing.T) {
	assert.Equal(t, "rgba(218, 165, 32, 1)", EventColor("AR60", 5))
	assert.Equal(t, FallbackColors[0], EventColor("FR60", 0))
	assert.Equal(t, FallbackColors[1], EventColor("FR60", 4))
}

func TestTranslucent(t *testing.T) {
	assert.Equal(t, "rgba(0, 100, 0, 0.1)", Translucent("rgba(0, 100, 0, 1)", "0.1"))
	assert.Equal(t, "rgba(1, 2, 3, 0.5)", Translucent("rgba(1, 2, 3, 0.5)", "0.1"))
	assert.Equal(t, "#636e72", Translucent("#636e72", "0.1"))
}

func TestParseColor(t *testing.T) {
	c, ok := ParseColor("rgba(220, 53, 69, 0.8)")
	assert.True(t, ok)
	assert.Equal(t, RGBA{R: 220, G: 53, B: 69, A: 0.8}, c)

	c, ok = ParseColor(" rgb(1, 2, 3) ")
	assert.True(t, ok)
	assert.Equal(t, RGBA{R: 1, G: 2, B: 3, A: 1}, c)

	c, ok = ParseColor("#f0a")
	assert.True(t, ok)
	assert.Equal(t, RGBA{R: 0xff, G: 0x00, B: 0xaa, A: 1}, c)

	for _, in := range []string{"", "rgb(", "rgba(", "rgb()", "rgb(1, 2, 3", "rgb(1, 2)", "rgba(1, 2, 3, 4, 5)",
		"rgba(300, 0, 0, 1)", "rgba(0, 0, 0, 2)", "#", "#ff00", "#gggggg", "tomato"} {
		_, ok := ParseColor(in)
		assert.False(t, ok, in)
	}
}

func TestSpanGaps(t *testing.T) {
	base := NewSeries("AR60", []string{"d1", "d2", "d3"}, []*float64{Value(5), nil, Value(7)})
	assert.True(t, base.Style.SpanGaps)

	for _, s := range Compose([]Series{base}, Value(600), TeamGoal) {
		assert.True(t, s.Style.SpanGaps, s.Label)
	}

	restyled := base
	restyled.Style = Style{Color: "gold"}
	restyled.Event = "AR60"
	for _, s := range Compose([]Series{restyled}, Value(600), PersonalGoal) {
		assert.True(t, s.Style.SpanGaps, s.Label)
	}
	for _, s := range Overview([]Series{restyled}, "AR60", DefaultStyles) {
		assert.True(t, s.Style.SpanGaps, s.Label)
	}
	assert.False(t, restyled.Style.SpanGaps, "input untouched")
}
