// Package scores holds the club's shooting results and builds the data
// payloads the result pages chart and filter.
package scores

import (
	"sort"
	"strings"
	"time"
)

// Genders as stored in the results.
const (
	Male   = "男"
	Female = "女"
)

// Genders lists the two gendered divisions in display order.
var Genders = []string{Male, Female}

// TargetEvents are the events with team goals and dashboard charts.
var TargetEvents = []string{"AR60", "SB3x20", "P60"}

// DateLayout is how score dates are written in uploads and chart axes.
const DateLayout = "2006/01/02"

type Player struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	EntryYear int    `json:"entry_year"`
}

type Score struct {
	ID       int64      `json:"id"`
	PlayerID int64      `json:"player_id"`
	Date     time.Time  `json:"date"`
	Match    string     `json:"match"`
	Category string     `json:"category"` // "Regular" marks team members
	Event    string     `json:"event"`
	Shots    [6]float64 `json:"shots"`
	Total    float64    `json:"total"`
}

type TeamGoal struct {
	Event  string  `json:"event"`
	Gender string  `json:"gender"`
	Target float64 `json:"target"`
}

// DB is an in-memory result set.
type DB struct {
	Players []Player   `json:"players"`
	Scores  []Score    `json:"scores"`
	Goals   []TeamGoal `json:"goals"`
}

// Player looks a player up by id.
func (db *DB) Player(id int64) (Player, bool) {
	for _, p := range db.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerByName looks a player up by exact name.
func (db *DB) PlayerByName(name string) (Player, bool) {
	for _, p := range db.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// ScoresOf returns a player's scores, oldest first.
func (db *DB) ScoresOf(playerID int64) []Score {
	var out []Score
	for _, s := range db.Scores {
		if s.PlayerID == playerID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// genderOf maps player id to gender.
func (db *DB) genderOf() map[int64]string {
	m := make(map[int64]string, len(db.Players))
	for _, p := range db.Players {
		m[p.ID] = p.Gender
	}
	return m
}

// TeamGoals returns event -> target for gender. Target events without a
// stored goal get DefaultTeamGoal.
func (db *DB) TeamGoals(gender string) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range TargetEvents {
		out[e] = DefaultTeamGoal(e)
	}
	for _, g := range db.Goals {
		if g.Gender == gender {
			out[g.Event] = g.Target
		}
	}
	return out
}

// DefaultTeamGoal is the goal used before one has been set.
func DefaultTeamGoal(event string) float64 {
	switch event {
	case "AR60":
		return 620
	case "SB3x20":
		return 570
	case "P60":
		return 560
	default:
		return 600
	}
}

var eventOrder = []string{"AR60", "SB3x20", "P60", "AP60", "BP"}

// SortEvents orders events by the fixed club order, then lexically.
func SortEvents(events []string) []string {
	rank := func(e string) int {
		for i, o := range eventOrder {
			if o == e {
				return i
			}
		}
		return len(eventOrder)
	}
	out := append([]string(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

var matchOrder = []string{
	"春季関東大会", "選抜", "東京六大学（春）", "新人BR大会", "東日本学生",
	"秋季関東大会", "東京六大学（秋）", "東西六大学", "全日本", "新人戦", "早慶戦",
}

// SortMatches orders match names by season, using the first season keyword
// each name contains. Unknown matches keep their relative order at the end.
func SortMatches(names []string) []string {
	rank := func(name string) int {
		for i, kw := range matchOrder {
			if strings.Contains(name, kw) {
				return i
			}
		}
		return len(matchOrder)
	}
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// IsSokeisen reports whether match is the mixed-team Waseda–Keio meet.
func IsSokeisen(match string) bool {
	return strings.Contains(match, "早慶戦")
}

// AcademicYear returns the April-start season a date belongs to.
func AcademicYear(d time.Time) int {
	if d.Month() >= time.April {
		return d.Year()
	}
	return d.Year() - 1
}

// SeasonStart returns April 1st of the season containing now.
func SeasonStart(now time.Time) time.Time {
	return time.Date(AcademicYear(now), time.April, 1, 0, 0, 0, 0, time.UTC)
}

// Matches returns distinct match names in season order.
func (db *DB) Matches() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, s := range db.Scores {
		if _, ok := seen[s.Match]; ok || s.Match == "" {
			continue
		}
		seen[s.Match] = struct{}{}
		names = append(names, s.Match)
	}
	return SortMatches(names)
}

// Events returns distinct events in club order.
func (db *DB) Events() []string {
	seen := map[string]struct{}{}
	var events []string
	for _, s := range db.Scores {
		if _, ok := seen[s.Event]; ok || s.Event == "" {
			continue
		}
		seen[s.Event] = struct{}{}
		events = append(events, s.Event)
	}
	return SortEvents(events)
}

func round1(v float64) float64 {
	if v < 0 {
		return -round1(-v)
	}
	return float64(int64(v*10+0.5)) / 10
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
