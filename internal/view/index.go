package view

import (
	"context"

	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/scores"
)

// IndexPage is the dashboard: a male/female monthly average chart per
// target event.
type IndexPage struct {
	Trends  []scores.Trend
	Players int

	owners []*render.Owner
}

// NewIndexPage builds the dashboard charts.
func NewIndexPage(db *scores.DB, surface render.Surface) *IndexPage {
	p := &IndexPage{
		Trends:  db.MonthlyAverages(scores.TargetEvents),
		Players: len(db.Players),
	}
	for range p.Trends {
		p.owners = append(p.owners, render.NewOwner(surface))
	}
	return p
}

// Init renders every chart that has data. Events with no scores in the
// window get no chart.
func (p *IndexPage) Init(ctx context.Context) error {
	for i, tr := range p.Trends {
		present := 0
		for _, s := range tr.Series {
			present += s.Present()
		}
		if present == 0 {
			if err := p.owners[i].Release(); err != nil {
				return err
			}
			continue
		}
		if _, err := p.owners[i].Render(ctx, render.Spec{
			Title:  tr.Title(),
			Labels: tr.Labels,
			Series: tr.Series,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Handle returns the live handle of chart index, or nil.
func (p *IndexPage) Handle(index int) render.Handle {
	if index < 0 || index >= len(p.owners) {
		return nil
	}
	return p.owners[index].Current()
}

// Close releases every chart.
func (p *IndexPage) Close() error { return releaseAll(p.owners...) }
