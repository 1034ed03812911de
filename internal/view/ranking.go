package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
)

// Ranking modes.
const (
	ModeAvg = "avg"
	ModeMax = "max"
)

// ErrUnknownPanel is returned for a panel ID the page does not have.
var ErrUnknownPanel = errors.New("unknown ranking panel")

// RankingPage is the ranking board: one panel per mode and event, one
// visible at a time, each with its own name search.
type RankingPage struct {
	Mode   string
	Event  string
	Panels map[string][]rowfilter.Record

	queries map[string]string
}

// NewRankingPage ranks db over scores on or after since (zero means all
// time). Each panel lists male then female entries; rows carry gender and
// year attributes.
func NewRankingPage(db *scores.DB, since time.Time) *RankingPage {
	rk := db.Rankings(since)
	p := &RankingPage{
		Mode:    ModeAvg,
		Event:   scores.TargetEvents[0],
		Panels:  map[string][]rowfilter.Record{},
		queries: map[string]string{},
	}
	for _, event := range scores.TargetEvents {
		for _, mode := range []string{ModeAvg, ModeMax} {
			var recs []rowfilter.Record
			for _, g := range scores.Genders {
				r := rk[event][g]
				entries := r.ByAvg
				if mode == ModeMax {
					entries = r.ByMax
				}
				for _, rec := range scores.RankRecords(entries) {
					rec.Attrs["gender"] = g
					recs = append(recs, rec)
				}
			}
			p.Panels[PanelID(mode, event)] = recs
		}
	}
	return p
}

// PanelID names the panel for mode and event, e.g. "avg-AR60".
func PanelID(mode, event string) string { return mode + "-" + event }

// SwitchMode shows mode for the current event.
func (p *RankingPage) SwitchMode(mode string) error {
	if mode != ModeAvg && mode != ModeMax {
		return fmt.Errorf("%w: mode %q", ErrUnknownPanel, mode)
	}
	p.Mode = mode
	return nil
}

// SwitchEvent shows event in the current mode.
func (p *RankingPage) SwitchEvent(event string) error {
	if _, ok := p.Panels[PanelID(p.Mode, event)]; !ok {
		return fmt.Errorf("%w: event %q", ErrUnknownPanel, event)
	}
	p.Event = event
	return nil
}

// ActivePanel returns the ID of the visible panel.
func (p *RankingPage) ActivePanel() string { return PanelID(p.Mode, p.Event) }

// Search filters panel's rows by player name.
func (p *RankingPage) Search(panel, query string) ([]rowfilter.Visibility, error) {
	recs, ok := p.Panels[panel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}
	p.queries[panel] = query
	return rowfilter.ComputeVisibility(recs, rowfilter.FilterState{Query: query}), nil
}

// Reset clears panel's search, showing every row unhighlighted.
func (p *RankingPage) Reset(panel string) ([]rowfilter.Visibility, error) {
	return p.Search(panel, "")
}

// Query returns the current search text of panel.
func (p *RankingPage) Query(panel string) string { return p.queries[panel] }

// Split parses a panel ID back into mode and event.
func Split(panel string) (mode, event string, ok bool) {
	return strings.Cut(panel, "-")
}
