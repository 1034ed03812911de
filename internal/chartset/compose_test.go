package chartset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayLabels() []string { return []string{"d1", "d2", "d3"} }

func gappedBase() []Series {
	s := NewSeries("AR60", dayLabels(), []*float64{Value(5), nil, Value(7)})
	s.Event = "AR60"
	return []Series{s}
}

func references(series []Series, category string) []Series {
	var out []Series
	for _, s := range series {
		if s.IsReference() && s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func TestCompose_AbsentIsIdentity(t *testing.T) {
	base := gappedBase()
	assert.Equal(t, base, Compose(base, nil, "goal"))
	assert.Nil(t, Compose(nil, nil, "goal"))
	assert.Equal(t, []Series{}, Compose([]Series{}, nil, "goal"))
}

func TestCompose_AbsentRemovesOnlyMatchingCategory(t *testing.T) {
	withTeam := Compose(gappedBase(), Value(600), TeamGoal)
	withBoth := Compose(withTeam, Value(610), PersonalGoal)
	require.Len(t, withBoth, 3)

	out := Compose(withBoth, nil, PersonalGoal)
	assert.Equal(t, withTeam, out)
	assert.Empty(t, references(out, PersonalGoal))
	assert.Len(t, references(out, TeamGoal), 1)
}

func TestCompose_ReplacesNotAccumulates(t *testing.T) {
	once := Compose(gappedBase(), Value(10), "goal")
	twice := Compose(once, Value(20), "goal")

	refs := references(twice, "goal")
	require.Len(t, refs, 1)
	for _, p := range refs[0].Points {
		require.NotNil(t, p.Y)
		assert.Equal(t, 20.0, *p.Y)
	}
	assert.Len(t, twice, 2)
}

func TestCompose_ReferenceSpansAxisAndDrawsBeneath(t *testing.T) {
	out := Compose(gappedBase(), Value(600), TeamGoal)
	require.Len(t, out, 2)

	ref := out[0]
	assert.True(t, ref.IsReference(), "reference comes first so it draws beneath")
	assert.Equal(t, "チーム目標", ref.Label)
	assert.NotEmpty(t, ref.Style.Dash)
	assert.True(t, ref.Style.HidePoints)
	assert.Greater(t, ref.Style.Order, out[1].Style.Order)

	xs := make([]string, len(ref.Points))
	for i, p := range ref.Points {
		xs[i] = p.X
		require.NotNil(t, p.Y)
		assert.Equal(t, 600.0, *p.Y)
	}
	assert.Equal(t, dayLabels(), xs)
}

func TestCompose_PreservesGaps(t *testing.T) {
	out := Compose(gappedBase(), Value(6), "goal")
	data := out[1]
	require.Len(t, data.Points, 3)
	assert.Equal(t, "d2", data.Points[1].X)
	assert.Nil(t, data.Points[1].Y, "absent stays absent")
	assert.Equal(t, 5.0, *data.Points[0].Y)
	assert.Equal(t, 7.0, *data.Points[2].Y)
}

func TestCompose_DoesNotMutateInput(t *testing.T) {
	base := gappedBase()
	_ = Compose(base, Value(1), "goal")
	assert.Len(t, base, 1)
	assert.Equal(t, gappedBase(), base)

	withRef := Compose(base, Value(1), "goal")
	_ = Compose(withRef, nil, "goal")
	assert.Len(t, withRef, 2)
}

func TestCompose_ReferenceDashIsNotShared(t *testing.T) {
	out := Compose(gappedBase(), Value(1), PersonalGoal)
	out[0].Style.Dash[0] = 99
	assert.Equal(t, []int{5, 5}, DefaultReferences[PersonalGoal].Style.Dash)
}

func TestComposeLine_ExplicitLabel(t *testing.T) {
	out := ComposeLine(gappedBase(), ReferenceLine{Label: TeamGoalLabel("女"), Value: 570, Category: TeamGoal})
	ref, ok := Reference(out, TeamGoal)
	require.True(t, ok)
	assert.Equal(t, "女子目標", ref.Label)
}

func TestComposeLine_UnknownCategory(t *testing.T) {
	out := ComposeLine(gappedBase(), ReferenceLine{Value: 3, Category: "season-best"})
	ref, ok := Reference(out, "season-best")
	require.True(t, ok)
	assert.Equal(t, "season-best", ref.Label)
	assert.NotEmpty(t, ref.Style.Dash)
}

func TestTeamGoalLabel(t *testing.T) {
	assert.Equal(t, "男子目標", TeamGoalLabel("男"))
	assert.Equal(t, "女子目標", TeamGoalLabel("女"))
	assert.Equal(t, "チーム目標", TeamGoalLabel(""))
}

func TestParseReference(t *testing.T) {
	cases := map[string]*float64{
		"":        nil,
		"   ":     nil,
		"abc":     nil,
		"NaN":     nil,
		"Inf":     nil,
		"12..5":   nil,
		"600":     Value(600),
		" 612.5 ": Value(612.5),
		"６００":     Value(600),
		"-1":      Value(-1),
	}
	for in, want := range cases {
		got := ParseReference(in)
		if want == nil {
			assert.Nil(t, got, "input %q", in)
			continue
		}
		require.NotNil(t, got, "input %q", in)
		assert.Equal(t, *want, *got, "input %q", in)
	}
}

func TestCompose_MalformedInputRemovesLine(t *testing.T) {
	withRef := Compose(gappedBase(), ParseReference("600"), PersonalGoal)
	require.Len(t, withRef, 2)

	out := Compose(withRef, ParseReference("six hundred"), PersonalGoal)
	assert.Equal(t, gappedBase(), out)
}

func TestOverview(t *testing.T) {
	years := []string{"2022", "2023", "2024"}
	all := []Series{
		FromLabel("AR60 女", years, []*float64{Value(1800), nil, Value(1810)}, DefaultMarkers),
		FromLabel("AR60 男", years, []*float64{Value(1850), Value(1860), nil}, DefaultMarkers),
		FromLabel("SB3x20 男", years, []*float64{Value(1700), nil, nil}, DefaultMarkers),
		FromLabel("AR60", years, []*float64{nil, Value(1900), nil}, DefaultMarkers),
	}
	all[0].Style = Style{Color: "gold", Dash: []int{5, 5}}
	all[3].Style = Style{Color: "gold", Dash: []int{5, 5}}

	out := Overview(all, "AR60", DefaultStyles)
	require.Len(t, out, 3)

	assert.Equal(t, GroupFemale, out[0].Group)
	assert.Equal(t, DefaultStyles[GroupFemale].Color, out[0].Style.Color)
	assert.Equal(t, DefaultStyles[GroupMale].Color, out[1].Style.Color)
	assert.Equal(t, "gold", out[2].Style.Color, "ungrouped series keeps its color")
	for _, s := range out {
		assert.Nil(t, s.Style.Dash)
	}
	assert.Equal(t, []int{5, 5}, all[0].Style.Dash, "input untouched")
	assert.Nil(t, out[0].Points[1].Y)
}

func TestOverview_NewGroupNeedsOnlyTableEntry(t *testing.T) {
	markers := append(MarkerTable{{Token: "混合", Group: GroupMixed}}, DefaultMarkers...)
	styles := StyleTable{GroupMixed: {Color: "teal"}}
	all := []Series{FromLabel("P60 混合", []string{"2024"}, []*float64{Value(1)}, markers)}

	out := Overview(all, "P60", styles)
	require.Len(t, out, 1)
	assert.Equal(t, "teal", out[0].Style.Color)
}
