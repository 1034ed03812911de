// Package view holds headless page controllers. Each one owns the state of
// a single page (filters, composed chart series, live chart handles) and is
// driven synchronously by the server or the CLI.
package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
)

// ErrUnknownPlayer is returned for a player ID not in the data.
var ErrUnknownPlayer = errors.New("unknown player")

// PlayerPage is one player's history: a chart per event with the team goal
// line, an optional personal goal line per chart and a filterable history
// table.
type PlayerPage struct {
	Player  scores.Player
	Labels  []string
	Base    []chartset.Series
	Goals   map[string]float64
	Summary []scores.Summary
	History []rowfilter.Record

	composed [][]chartset.Series
	owners   []*render.Owner
	filter   rowfilter.FilterState
}

// NewPlayerPage builds the page for playerID. Charts draw on surface, which
// may be nil.
func NewPlayerPage(db *scores.DB, playerID int64, surface render.Surface) (*PlayerPage, error) {
	p, ok := db.Player(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	history := db.ScoresOf(playerID)
	labels, base := scores.PlayerHistory(history)
	page := &PlayerPage{
		Player:  p,
		Labels:  labels,
		Base:    base,
		Goals:   db.TeamGoals(p.Gender),
		Summary: db.PlayerSummary(playerID),
		History: scores.HistoryRecords(history),
	}
	page.composed = make([][]chartset.Series, len(base))
	page.owners = make([]*render.Owner, len(base))
	for i := range base {
		page.owners[i] = render.NewOwner(surface)
	}
	return page, nil
}

// Init composes each event chart with its team goal line and renders it.
func (p *PlayerPage) Init(ctx context.Context) error {
	label := chartset.TeamGoalLabel(p.Player.Gender)
	for i, s := range p.Base {
		series := []chartset.Series{s}
		if goal, ok := p.Goals[s.Event]; ok {
			series = chartset.ComposeLine(series, chartset.ReferenceLine{
				Label:    label,
				Value:    goal,
				Category: chartset.TeamGoal,
			})
		}
		p.composed[i] = series
		if err := p.draw(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// SetPersonalTarget recomposes chart index with the personal goal typed by
// the user. Input that is not a number removes the line. An index with no
// chart is ignored.
func (p *PlayerPage) SetPersonalTarget(ctx context.Context, index int, input string) error {
	if index < 0 || index >= len(p.composed) || p.composed[index] == nil {
		return nil
	}
	p.composed[index] = chartset.Compose(p.composed[index], chartset.ParseReference(input), chartset.PersonalGoal)
	return p.draw(ctx, index)
}

func (p *PlayerPage) draw(ctx context.Context, index int) error {
	_, err := p.owners[index].Render(ctx, render.Spec{
		Title:  p.Base[index].Event,
		Labels: p.Labels,
		Series: p.composed[index],
	})
	return err
}

// Chart returns the composed series of chart index, or nil.
func (p *PlayerPage) Chart(index int) []chartset.Series {
	if index < 0 || index >= len(p.composed) {
		return nil
	}
	return p.composed[index]
}

// Handle returns the live handle of chart index, or nil.
func (p *PlayerPage) Handle(index int) render.Handle {
	if index < 0 || index >= len(p.owners) {
		return nil
	}
	return p.owners[index].Current()
}

// FilterHistory narrows the history table by match and event. Empty values
// clear that constraint.
func (p *PlayerPage) FilterHistory(match, event string) []rowfilter.Visibility {
	p.filter = p.filter.With("match", match).With("event", event)
	return rowfilter.ComputeVisibility(p.History, p.filter)
}

// Close releases every chart.
func (p *PlayerPage) Close() error {
	return releaseAll(p.owners...)
}

func releaseAll(owners ...*render.Owner) error {
	var errs []error
	for _, o := range owners {
		if err := o.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
