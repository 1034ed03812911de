package scores

import (
	"sort"

	"github.com/poku-e/shootingboard/internal/chartset"
)

// PlayerHistory builds the player page chart data: a date axis and one
// series per event, gaps where the player did not shoot that event that day.
// Events appear in the order the player first shot them.
func PlayerHistory(scores []Score) ([]string, []chartset.Series) {
	dateSet := map[string]struct{}{}
	var events []string
	byEvent := map[string]map[string]float64{}
	for _, s := range scores {
		d := s.Date.Format(DateLayout)
		dateSet[d] = struct{}{}
		m, ok := byEvent[s.Event]
		if !ok {
			m = map[string]float64{}
			byEvent[s.Event] = m
			events = append(events, s.Event)
		}
		m[d] = s.Total
	}
	labels := make([]string, 0, len(dateSet))
	for d := range dateSet {
		labels = append(labels, d)
	}
	sort.Strings(labels)

	series := make([]chartset.Series, 0, len(events))
	for i, event := range events {
		values := make([]*float64, len(labels))
		for j, d := range labels {
			if v, ok := byEvent[event][d]; ok {
				values[j] = chartset.Value(v)
			}
		}
		s := chartset.NewSeries(event, labels, values)
		s.Event = event
		color := chartset.EventColor(event, i)
		s.Style = chartset.Style{Color: color, Fill: chartset.Translucent(color, "0.1"), SpanGaps: true}
		series = append(series, s)
	}
	return labels, series
}

// Summary is a player's record in one event.
type Summary struct {
	Event        string  `json:"event"`
	Max          float64 `json:"max"`
	Avg          float64 `json:"avg"`
	Count        int     `json:"count"`
	RankBest     int     `json:"rank_best,omitempty"` // 0 when unknown
	RankAvg      int     `json:"rank_avg,omitempty"`
	Participants int     `json:"participants,omitempty"`
}

// PlayerSummary returns per-event max/avg for playerID, ranked against
// every player's best and average in that event. Events are in club order.
func (db *DB) PlayerSummary(playerID int64) []Summary {
	type agg struct {
		max, sum float64
		n        int
	}
	perEvent := map[string]map[int64]*agg{}
	for _, s := range db.Scores {
		m, ok := perEvent[s.Event]
		if !ok {
			m = map[int64]*agg{}
			perEvent[s.Event] = m
		}
		a, ok := m[s.PlayerID]
		if !ok {
			a = &agg{max: s.Total}
			m[s.PlayerID] = a
		}
		if s.Total > a.max {
			a.max = s.Total
		}
		a.sum += s.Total
		a.n++
	}

	var events []string
	for e, m := range perEvent {
		if _, ok := m[playerID]; ok {
			events = append(events, e)
		}
	}

	out := make([]Summary, 0, len(events))
	for _, e := range SortEvents(events) {
		mine := perEvent[e][playerID]
		sum := Summary{Event: e, Max: mine.max, Avg: round1(mine.sum / float64(mine.n)), Count: mine.n}

		var bests, avgs []float64
		for _, a := range perEvent[e] {
			bests = append(bests, a.max)
			avgs = append(avgs, round1(a.sum/float64(a.n)))
		}
		sum.RankBest = rankOf(bests, sum.Max)
		sum.RankAvg = rankOf(avgs, sum.Avg)
		sum.Participants = len(bests)
		out = append(out, sum)
	}
	return out
}

// rankOf is the 1-based position of v in values sorted descending; ties
// share the better rank.
func rankOf(values []float64, v float64) int {
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for i, x := range sorted {
		if x == v {
			return i + 1
		}
	}
	return 0
}
