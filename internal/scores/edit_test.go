package scores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTeamGoal(t *testing.T) {
	db := fixture()

	require.NoError(t, db.SetTeamGoal("AR60", Male, 630))
	require.NoError(t, db.SetTeamGoal(" P60 ", Female, 555.5))
	assert.Equal(t, []TeamGoal{
		{Event: "AR60", Gender: Male, Target: 630},
		{Event: "P60", Gender: Female, Target: 555.5},
	}, db.Goals)
	assert.Equal(t, 630.0, db.TeamGoals(Male)["AR60"])
	assert.Equal(t, 555.5, db.TeamGoals(Female)["P60"])

	for _, tc := range []struct {
		event, gender string
		target        float64
	}{
		{"", Male, 600},
		{"AR60", "mixed", 600},
		{"AR60", Female, 0},
		{"AR60", Female, -1},
	} {
		assert.ErrorIs(t, db.SetTeamGoal(tc.event, tc.gender, tc.target), ErrBadGoal, tc)
	}
	assert.Len(t, db.Goals, 2)
}

func TestUpdateAndDeleteScore(t *testing.T) {
	db := fixture()

	s, ok := db.Score(2)
	require.True(t, ok)
	s.SetShots([6]float64{95.1, 93, 94, 92.2, 90, 96})
	s.Match = "選抜"
	require.NoError(t, db.UpdateScore(s))
	got, _ := db.Score(2)
	assert.Equal(t, 560.3, got.Total)
	assert.Equal(t, "選抜", got.Match)

	assert.ErrorIs(t, db.UpdateScore(Score{ID: 99}), ErrUnknownScore)

	removed, err := db.DeleteScore(5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed.PlayerID)
	assert.Len(t, db.Scores, 5)
	_, ok = db.Score(5)
	assert.False(t, ok)

	_, err = db.DeleteScore(5)
	assert.ErrorIs(t, err, ErrUnknownScore)
}

func TestRecent(t *testing.T) {
	db := fixture()

	recent := db.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(6), recent[0].ID)
	assert.Equal(t, "佐藤 次郎", recent[0].Player)
	assert.Equal(t, int64(3), recent[1].ID)
	assert.Equal(t, int64(2), recent[2].ID)

	assert.Len(t, db.Recent(10), 6)
	assert.Empty(t, (&DB{}).Recent(10))
}

func TestSeasons(t *testing.T) {
	db := fixture()
	db.Scores = append(db.Scores, Score{ID: 7, PlayerID: 1, Date: day(2025, 5, 11), Match: "春季関東大会", Event: "AR60", Total: 612})
	assert.Equal(t, []int{2025, 2024}, db.Seasons("春季関東大会"))
	assert.Equal(t, []int{2024}, db.Seasons("東日本学生"))
	assert.Empty(t, db.Seasons("新人戦"))
}
