package scores

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	ErrUnknownScore = errors.New("unknown score")
	ErrBadGoal      = errors.New("invalid team goal")
)

// SetTeamGoal stores the team goal for event and gender, replacing any
// existing one.
func (db *DB) SetTeamGoal(event, gender string, target float64) error {
	event = strings.TrimSpace(event)
	switch {
	case event == "":
		return fmt.Errorf("%w: empty event", ErrBadGoal)
	case !slices.Contains(Genders, gender):
		return fmt.Errorf("%w: gender must be %s or %s, got %q", ErrBadGoal, Male, Female, gender)
	case target <= 0:
		return fmt.Errorf("%w: target must be positive, got %g", ErrBadGoal, target)
	}
	for i, g := range db.Goals {
		if g.Event == event && g.Gender == gender {
			db.Goals[i].Target = target
			return nil
		}
	}
	db.Goals = append(db.Goals, TeamGoal{Event: event, Gender: gender, Target: target})
	return nil
}

// Score looks a score up by id.
func (db *DB) Score(id int64) (Score, bool) {
	for _, s := range db.Scores {
		if s.ID == id {
			return s, true
		}
	}
	return Score{}, false
}

// UpdateScore replaces the stored score with the same id.
func (db *DB) UpdateScore(s Score) error {
	for i := range db.Scores {
		if db.Scores[i].ID == s.ID {
			db.Scores[i] = s
			return nil
		}
	}
	return fmt.Errorf("%w %d", ErrUnknownScore, s.ID)
}

// DeleteScore removes the score with id and returns it.
func (db *DB) DeleteScore(id int64) (Score, error) {
	for i, s := range db.Scores {
		if s.ID == id {
			db.Scores = slices.Delete(db.Scores, i, i+1)
			return s, nil
		}
	}
	return Score{}, fmt.Errorf("%w %d", ErrUnknownScore, id)
}

// SetShots replaces the six series scores and recomputes the total.
func (s *Score) SetShots(shots [6]float64) {
	s.Shots = shots
	var sum float64
	for _, v := range shots {
		sum += v
	}
	s.Total = round1(sum)
}

// RecentScore is a score with its player's name.
type RecentScore struct {
	Score
	Player string `json:"player"`
}

// Recent returns up to n scores, newest first.
func (db *DB) Recent(n int) []RecentScore {
	list := slices.Clone(db.Scores)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	names := make(map[int64]string, len(db.Players))
	for _, p := range db.Players {
		names[p.ID] = p.Name
	}
	out := make([]RecentScore, len(list))
	for i, s := range list {
		out[i] = RecentScore{Score: s, Player: names[s.PlayerID]}
	}
	return out
}
