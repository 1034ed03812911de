package view

import (
	"context"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/scores"
)

// InitialEvent is the overview shown before the user picks a tab.
const InitialEvent = "AR60"

// MatchYearsPage is one match's season-by-season team totals with an event
// tab bar over a single overview chart.
type MatchYearsPage struct {
	History scores.MatchHistory
	Styles  chartset.StyleTable
	Event   string

	owner  *render.Owner
	series []chartset.Series
}

// NewMatchYearsPage builds the page for match. Nil tables fall back to
// chartset.DefaultStyles and chartset.DefaultMarkers.
func NewMatchYearsPage(db *scores.DB, match string, styles chartset.StyleTable, markers chartset.MarkerTable, surface render.Surface) *MatchYearsPage {
	if styles == nil {
		styles = chartset.DefaultStyles
	}
	return &MatchYearsPage{
		History: db.MatchYearsWith(match, markers),
		Styles:  styles,
		owner:   render.NewOwner(surface),
	}
}

// Events lists the events with at least one series, in site order.
func (p *MatchYearsPage) Events() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range p.History.Series {
		if !seen[s.Event] {
			seen[s.Event] = true
			out = append(out, s.Event)
		}
	}
	return scores.SortEvents(out)
}

// Select switches the overview to event and redraws it. An event with no
// series releases the chart and leaves it empty.
func (p *MatchYearsPage) Select(ctx context.Context, event string) error {
	p.Event = event
	p.series = chartset.Overview(p.History.Series, event, p.Styles)
	if len(p.series) == 0 {
		return p.owner.Release()
	}
	_, err := p.owner.Render(ctx, render.Spec{
		Title:  p.History.Match + " " + event,
		XTitle: "年度",
		Labels: p.History.Labels,
		Series: p.series,
	})
	return err
}

// Series returns the overview currently shown.
func (p *MatchYearsPage) Series() []chartset.Series { return p.series }

// Handle returns the live chart handle, or nil.
func (p *MatchYearsPage) Handle() render.Handle { return p.owner.Current() }

// Close releases the chart.
func (p *MatchYearsPage) Close() error { return p.owner.Release() }
