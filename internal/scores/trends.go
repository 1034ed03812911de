package scores

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/poku-e/shootingboard/internal/chartset"
)

// Trend is one event's dashboard chart.
type Trend struct {
	Event  string            `json:"event"`
	Labels []string          `json:"labels"`
	Series []chartset.Series `json:"series"`
}

// TrendWindowYears is how far back the dashboard charts reach from the most
// recent score.
const TrendWindowYears = 4

// MonthlyAverages builds the male/female monthly average charts for events,
// limited to the window ending at the latest score. All events share one
// month axis.
func (db *DB) MonthlyAverages(events []string) []Trend {
	var latest time.Time
	for _, s := range db.Scores {
		if s.Date.After(latest) {
			latest = s.Date
		}
	}
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if !latest.IsZero() {
		start = yearsBefore(latest, TrendWindowYears)
	}

	type key struct{ event, gender, month string }
	type acc struct {
		sum float64
		n   int
	}
	want := map[string]bool{}
	for _, e := range events {
		want[e] = true
	}
	gender := db.genderOf()
	sums := map[key]*acc{}
	monthSet := map[string]struct{}{}
	for _, s := range db.Scores {
		g := gender[s.PlayerID]
		if s.Date.Before(start) || !want[s.Event] || (g != Male && g != Female) {
			continue
		}
		k := key{s.Event, g, s.Date.Format("2006/01")}
		a, ok := sums[k]
		if !ok {
			a = &acc{}
			sums[k] = a
		}
		a.sum += s.Total
		a.n++
		monthSet[k.month] = struct{}{}
	}
	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]Trend, 0, len(events))
	for _, e := range events {
		tr := Trend{Event: e, Labels: months}
		for _, g := range Genders {
			values := make([]*float64, len(months))
			for i, m := range months {
				if a, ok := sums[key{e, g, m}]; ok {
					values[i] = chartset.Value(round1(a.sum / float64(a.n)))
				}
			}
			s := chartset.NewSeries(divisionLabel(g), months, values)
			s.Event = e
			s.Group = groupOf(g)
			s.Style.Tension = 0.1
			tr.Series = append(tr.Series, chartset.DefaultStyles.Apply(s))
		}
		out = append(out, tr)
	}
	return out
}

// yearsBefore steps back n calendar years, clamping Feb 29 to Feb 28.
func yearsBefore(t time.Time, n int) time.Time {
	y := t.Year() - n
	d := t.Day()
	if t.Month() == time.February && d == 29 {
		d = 28
	}
	return time.Date(y, t.Month(), d, 0, 0, 0, 0, time.UTC)
}

func divisionLabel(gender string) string {
	switch gender {
	case Male:
		return "男子"
	case Female:
		return "女子"
	default:
		return gender
	}
}

func groupOf(gender string) chartset.Group {
	switch gender {
	case Male:
		return chartset.GroupMale
	case Female:
		return chartset.GroupFemale
	default:
		return chartset.GroupNone
	}
}

// YearSummary is one season of a match: its date range and the team
// members per event division.
type YearSummary struct {
	Year     int                 `json:"year"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Regulars map[string][]string `json:"regulars"`
}

// MatchHistory is the match-by-season page payload.
type MatchHistory struct {
	Match  string            `json:"match"`
	Years  []YearSummary     `json:"years"` // newest first
	Labels []string          `json:"labels"`
	Series []chartset.Series `json:"series"`
}

// MatchYears totals the Regular members' scores per season for match.
// Divisions are "<event> <gender>", or the event alone for the mixed
// Waseda–Keio meet.
func (db *DB) MatchYears(match string) MatchHistory {
	return db.MatchYearsWith(match, chartset.DefaultMarkers)
}

// MatchYearsWith is MatchYears with the division groups read by markers.
func (db *DB) MatchYearsWith(match string, markers chartset.MarkerTable) MatchHistory {
	if markers == nil {
		markers = chartset.DefaultMarkers
	}
	mixed := IsSokeisen(match)
	players := map[int64]Player{}
	for _, p := range db.Players {
		players[p.ID] = p
	}

	years := map[int]*YearSummary{}
	totals := map[int]map[string]float64{}
	for _, s := range db.Scores {
		if s.Match != match {
			continue
		}
		ay := AcademicYear(s.Date)
		ys, ok := years[ay]
		if !ok {
			ys = &YearSummary{Year: ay, Start: s.Date, End: s.Date, Regulars: map[string][]string{}}
			years[ay] = ys
		}
		if s.Date.Before(ys.Start) {
			ys.Start = s.Date
		}
		if s.Date.After(ys.End) {
			ys.End = s.Date
		}
		if s.Category != "Regular" {
			continue
		}
		p := players[s.PlayerID]
		division := s.Event
		if !mixed {
			division = s.Event + " " + p.Gender
		}
		if !contains(ys.Regulars[division], p.Name) {
			ys.Regulars[division] = append(ys.Regulars[division], p.Name)
		}
		if totals[ay] == nil {
			totals[ay] = map[string]float64{}
		}
		totals[ay][division] = round1(totals[ay][division] + s.Total)
	}

	mh := MatchHistory{Match: match}
	for _, ys := range years {
		mh.Years = append(mh.Years, *ys)
	}
	sort.Slice(mh.Years, func(i, j int) bool { return mh.Years[i].Year > mh.Years[j].Year })

	var chartYears []int
	divisionSet := map[string]struct{}{}
	for y, m := range totals {
		chartYears = append(chartYears, y)
		for d := range m {
			divisionSet[d] = struct{}{}
		}
	}
	sort.Ints(chartYears)
	for _, y := range chartYears {
		mh.Labels = append(mh.Labels, strconv.Itoa(y))
	}
	divisions := make([]string, 0, len(divisionSet))
	for d := range divisionSet {
		divisions = append(divisions, d)
	}
	sort.Strings(divisions)

	for _, d := range divisions {
		values := make([]*float64, len(chartYears))
		for i, y := range chartYears {
			if v, ok := totals[y][d]; ok {
				values[i] = chartset.Value(v)
			}
		}
		s := chartset.FromLabel(d, mh.Labels, values, markers)
		if mixed {
			s.Group = chartset.GroupMixed
		}
		color := divisionColor(s.Event)
		s.Style = chartset.Style{Color: color, Fill: color, SpanGaps: true}
		if s.Group == chartset.GroupFemale {
			s.Style.Dash = []int{5, 5}
		}
		mh.Series = append(mh.Series, s)
	}
	return mh
}

func divisionColor(event string) string {
	switch event {
	case "AR60", "SB3x20", "P60":
		return chartset.EventColors[event]
	default:
		return "#636e72"
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// MatchResult is one season's team and individual standings for a match.
type MatchResult struct {
	Match      string                  `json:"match"`
	Year       int                     `json:"year"`
	Mixed      bool                    `json:"mixed"`
	Teams      map[string][]TeamResult `json:"teams"` // division ("男", "女" or "mixed") -> teams
	Individual map[string][]Score      `json:"individual"`
}

// TeamResult is the Regular members' total in one event.
type TeamResult struct {
	Event   string  `json:"event"`
	Total   float64 `json:"total"`
	Members []Score `json:"members"`
}

// MatchSeason gathers team totals and individual results for one season of
// match. The mixed meet counts AR60, SB3x20 and P60; other matches count
// AR60 and SB3x20 per gender.
func (db *DB) MatchSeason(match string, year int) MatchResult {
	start := time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.March, 31, 0, 0, 0, 0, time.UTC)
	mixed := IsSokeisen(match)
	counted := []string{"AR60", "SB3x20"}
	if mixed {
		counted = TargetEvents
	}
	gender := db.genderOf()

	res := MatchResult{Match: match, Year: year, Mixed: mixed, Teams: map[string][]TeamResult{}, Individual: map[string][]Score{}}
	teams := map[string]map[string]*TeamResult{}
	for _, s := range db.Scores {
		if s.Match != match || s.Date.Before(start) || s.Date.After(end) {
			continue
		}
		res.Individual[s.Event] = append(res.Individual[s.Event], s)
		if s.Category != "Regular" || !contains(counted, s.Event) {
			continue
		}
		division := "mixed"
		if !mixed {
			division = Female
			if gender[s.PlayerID] == Male {
				division = Male
			}
		}
		if teams[division] == nil {
			teams[division] = map[string]*TeamResult{}
		}
		tr, ok := teams[division][s.Event]
		if !ok {
			tr = &TeamResult{Event: s.Event}
			teams[division][s.Event] = tr
		}
		tr.Total = round1(tr.Total + s.Total)
		tr.Members = append(tr.Members, s)
	}
	for division, byEvent := range teams {
		for _, e := range SortEvents(keys(byEvent)) {
			res.Teams[division] = append(res.Teams[division], *byEvent[e])
		}
	}
	for e := range res.Individual {
		list := res.Individual[e]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Total > list[j].Total })
	}
	return res
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Title returns the chart title for an event's dashboard trend.
func (t Trend) Title() string {
	return fmt.Sprintf("%s 平均点推移", t.Event)
}

// Seasons returns the academic years match was held in, newest first.
func (db *DB) Seasons(match string) []int {
	seen := map[int]bool{}
	var years []int
	for _, s := range db.Scores {
		if s.Match != match {
			continue
		}
		if y := AcademicYear(s.Date); !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
