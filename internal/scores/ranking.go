package scores

import (
	"sort"
	"strconv"
	"time"

	"github.com/poku-e/shootingboard/internal/rowfilter"
)

// RankEntry is one player's line in a ranking table.
type RankEntry struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	Year     int     `json:"year"`
	Avg      float64 `json:"avg"`
	Max      float64 `json:"max"`
	Count    int     `json:"count"`
}

// Ranking holds one event/gender table sorted two ways.
type Ranking struct {
	ByAvg []RankEntry `json:"by_avg"`
	ByMax []RankEntry `json:"by_max"`
}

// Rankings is event -> gender -> ranking.
type Rankings map[string]map[string]Ranking

// Rankings ranks every player per target event and gender by average and by
// best total. A zero since ranks over all time.
func (db *DB) Rankings(since time.Time) Rankings {
	type agg struct {
		sum, max float64
		n        int
	}
	players := map[int64]Player{}
	for _, p := range db.Players {
		players[p.ID] = p
	}
	type key struct {
		event string
		id    int64
	}
	aggs := map[key]*agg{}
	var order []key
	for _, s := range db.Scores {
		if !since.IsZero() && s.Date.Before(since) {
			continue
		}
		k := key{s.Event, s.PlayerID}
		a, ok := aggs[k]
		if !ok {
			a = &agg{max: s.Total}
			aggs[k] = a
			order = append(order, k)
		}
		a.sum += s.Total
		if s.Total > a.max {
			a.max = s.Total
		}
		a.n++
	}

	out := Rankings{}
	for _, e := range TargetEvents {
		out[e] = map[string]Ranking{}
		for _, g := range Genders {
			var entries []RankEntry
			for _, k := range order {
				p := players[k.id]
				if k.event != e || p.Gender != g {
					continue
				}
				a := aggs[k]
				entries = append(entries, RankEntry{
					PlayerID: p.ID,
					Name:     p.Name,
					Year:     p.EntryYear,
					Avg:      round1(a.sum / float64(a.n)),
					Max:      round1(a.max),
					Count:    a.n,
				})
			}
			byAvg := append([]RankEntry(nil), entries...)
			sort.SliceStable(byAvg, func(i, j int) bool { return byAvg[i].Avg > byAvg[j].Avg })
			byMax := append([]RankEntry(nil), entries...)
			sort.SliceStable(byMax, func(i, j int) bool { return byMax[i].Max > byMax[j].Max })
			out[e][g] = Ranking{ByAvg: byAvg, ByMax: byMax}
		}
	}
	return out
}

// RankRecords turns ranking entries into filterable rows. Text is the
// player name.
func RankRecords(entries []RankEntry) []rowfilter.Record {
	out := make([]rowfilter.Record, len(entries))
	for i, e := range entries {
		out[i] = rowfilter.Record{
			ID:   strconv.FormatInt(e.PlayerID, 10),
			Text: e.Name,
			Attrs: map[string]string{
				"year": strconv.Itoa(e.Year),
			},
		}
	}
	return out
}

// HistoryRecords turns a player's scores into rows filterable by match and
// event.
func HistoryRecords(scores []Score) []rowfilter.Record {
	out := make([]rowfilter.Record, len(scores))
	for i, s := range scores {
		out[i] = rowfilter.Record{
			ID:   strconv.FormatInt(s.ID, 10),
			Text: s.Date.Format(DateLayout) + " " + s.Match + " " + s.Event,
			Attrs: map[string]string{
				"match": s.Match,
				"event": s.Event,
			},
		}
	}
	return out
}

// PlayerRecords turns the roster into rows filterable by entry year and
// gender, newest entry year first, then by name.
func (db *DB) PlayerRecords() []rowfilter.Record {
	players := append([]Player(nil), db.Players...)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].EntryYear != players[j].EntryYear {
			return players[i].EntryYear > players[j].EntryYear
		}
		return players[i].Name < players[j].Name
	})
	out := make([]rowfilter.Record, len(players))
	for i, p := range players {
		out[i] = rowfilter.Record{
			ID:   strconv.FormatInt(p.ID, 10),
			Text: p.Name,
			Attrs: map[string]string{
				"year":   strconv.Itoa(p.EntryYear),
				"gender": p.Gender,
			},
		}
	}
	return out
}
