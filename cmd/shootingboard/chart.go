package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/poku-e/shootingboard/internal/config"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/view"
)

type chartOpts struct {
	out     string
	player  int64
	target  string
	index   int
	matches []string
	trends  bool
	jobs    int
}

// chartJob is one image to render and where to write it.
type chartJob struct {
	file string
	spec render.Spec
}

func newChartCmd(g *globals) *cobra.Command {
	o := &chartOpts{}
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render result charts to image files",
		Long: `Render charts to PNG or SVG files (chart.format in the config). Player charts
carry the team goal line and, with --target, a personal goal line on the
chart selected by --index. Charts are rendered concurrently.`,
		Example: `  shootingboard chart --trends --out charts
  shootingboard chart --player 12 --target 600 --index 0
  shootingboard chart --match 早慶戦 --match 春季関東大会`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			db, err := load(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			jobs, err := o.plan(cmd.Context(), db, cfg)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return exitError(ExitInvalidArgs, "nothing to chart (use --trends, --player or --match)")
			}
			if err := os.MkdirAll(o.out, 0o755); err != nil {
				return exitError(ExitDataError, "create %s: %v", o.out, err)
			}
			surface := render.NewChartSurface(render.ParseFormat(cfg.Chart.Format), cfg.Chart.Width, cfg.Chart.Height)
			n, err := renderAll(cmd.Context(), surface, jobs, o.out, o.jobs)
			if err != nil {
				return exitError(ExitRenderError, "%v", err)
			}
			ok := color.New(color.FgGreen)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d charts -> %s\n", ok.Sprint("OK:"), n, o.out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "charts", "output directory")
	f.Int64Var(&o.player, "player", 0, "render the charts of this player")
	f.StringVar(&o.target, "target", "", "personal goal for the player chart at --index")
	f.IntVar(&o.index, "index", 0, "player chart the --target applies to")
	f.StringArrayVar(&o.matches, "match", nil, "render the season overview of this match (repeatable)")
	f.BoolVar(&o.trends, "trends", false, "render the dashboard monthly average charts")
	f.IntVar(&o.jobs, "jobs", 4, "charts rendered at once")
	return cmd
}

// plan composes every requested chart headlessly and returns the specs.
func (o *chartOpts) plan(ctx context.Context, db *scores.DB, cfg config.Config) ([]chartJob, error) {
	ext := "." + string(render.ParseFormat(cfg.Chart.Format))
	var jobs []chartJob

	if o.trends {
		p := view.NewIndexPage(db, nil)
		for _, tr := range p.Trends {
			jobs = append(jobs, chartJob{
				file: "trend-" + tr.Event + ext,
				spec: render.Spec{Title: tr.Title(), Labels: tr.Labels, Series: tr.Series},
			})
		}
	}
	if o.player != 0 {
		p, err := view.NewPlayerPage(db, o.player, nil)
		if err != nil {
			return nil, exitError(ExitInvalidArgs, "%v", err)
		}
		if err := p.Init(ctx); err != nil {
			return nil, err
		}
		if o.target != "" {
			if err := p.SetPersonalTarget(ctx, o.index, o.target); err != nil {
				return nil, err
			}
		}
		for i, s := range p.Base {
			jobs = append(jobs, chartJob{
				file: fmt.Sprintf("player-%d-%d-%s%s", o.player, i, s.Event, ext),
				spec: render.Spec{Title: p.Player.Name + " " + s.Event, Labels: p.Labels, Series: p.Chart(i)},
			})
		}
	}
	for _, m := range o.matches {
		p := view.NewMatchYearsPage(db, m, cfg.StyleTable(), cfg.MarkerTable(), nil)
		if len(p.History.Years) == 0 {
			return nil, exitError(ExitInvalidArgs, "unknown match %q", m)
		}
		for _, e := range p.Events() {
			if err := p.Select(ctx, e); err != nil {
				return nil, err
			}
			jobs = append(jobs, chartJob{
				file: "match-" + safeName(m) + "-" + e + ext,
				spec: render.Spec{Title: m + " " + e, XTitle: "年度", Labels: p.History.Labels, Series: p.Series()},
			})
		}
	}
	return jobs, nil
}

// renderAll renders jobs concurrently, each through its own owner, and
// writes the images into dir. Charts without data are skipped.
func renderAll(ctx context.Context, surface *render.ChartSurface, jobs []chartJob, dir string, limit int) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	var written atomic.Int64
	for _, job := range jobs {
		g.Go(func() error {
			owner := render.NewOwner(surface)
			defer owner.Release()
			h, err := owner.Render(ctx, job.spec)
			if errors.Is(err, render.ErrNoData) {
				slog.Warn("skipping empty chart", "file", job.file)
				return nil
			}
			if err != nil {
				return err
			}
			img, ok := surface.Image(h.ID())
			if !ok {
				return fmt.Errorf("chart %s vanished before it was written", job.file)
			}
			path := filepath.Join(dir, job.file)
			if err := os.WriteFile(path, img.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			written.Add(1)
			slog.Debug("chart written", "path", path, "bytes", len(img.Data))
			return nil
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

var unsafeRe = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

func safeName(s string) string {
	return unsafeRe.ReplaceAllString(s, "_")
}
