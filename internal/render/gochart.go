package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/poku-e/shootingboard/internal/chartset"
)

// Format selects the encoded image type.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case; anything else is PNG.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(SVG)) {
		return SVG
	}
	return PNG
}

// Image is an encoded chart.
type Image struct {
	Format Format
	Data   []byte
}

// ContentType returns the MIME type of the image.
func (i Image) ContentType() string {
	if i.Format == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// ChartSurface renders with go-chart and keeps encoded images until their
// handle is released. Safe for concurrent use.
type ChartSurface struct {
	format        Format
	width, height int

	mu     sync.RWMutex
	images map[string]Image
}

// NewChartSurface returns a surface producing images of the given format.
// Zero sizes fall back to 800x400.
func NewChartSurface(format Format, width, height int) *ChartSurface {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}
	return &ChartSurface{format: format, width: width, height: height, images: make(map[string]Image)}
}

// Image returns the encoded chart for a live handle id.
func (cs *ChartSurface) Image(id string) (Image, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	img, ok := cs.images[id]
	return img, ok
}

// Live returns the number of unreleased charts.
func (cs *ChartSurface) Live() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.images)
}

// Render implements Surface.
func (cs *ChartSurface) Render(ctx context.Context, spec Spec) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, err := cs.build(spec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	rp := chart.PNG
	if cs.format == SVG {
		rp = chart.SVG
	}
	if err := ch.Render(rp, &buf); err != nil {
		return nil, fmt.Errorf("go-chart: %w", err)
	}

	id := uuid.NewString()
	cs.mu.Lock()
	cs.images[id] = Image{Format: cs.format, Data: buf.Bytes()}
	cs.mu.Unlock()
	return &chartHandle{id: id, surface: cs}, nil
}

func (cs *ChartSurface) build(spec Spec) (chart.Chart, error) {
	labels := spec.Labels
	if len(labels) == 0 {
		labels = chartset.Axis(spec.Series)
	}

	// larger Order first so it ends up beneath
	ordered := make([]chartset.Series, len(spec.Series))
	copy(ordered, spec.Series)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Style.Order > ordered[j].Style.Order })

	var series []chart.Series
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range ordered {
		var xs, ys []float64
		for i, v := range s.ValuesOn(labels) {
			// gaps are skipped so the line runs straight across them
			if v == nil {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, *v)
			minY = math.Min(minY, *v)
			maxY = math.Max(maxY, *v)
		}
		if len(xs) == 0 {
			continue
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0])
			ys = append(ys, ys[0])
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(s.Style),
		})
	}
	if len(series) == 0 {
		return chart.Chart{}, ErrNoData
	}

	ticks := make([]chart.Tick, len(labels))
	for i, l := range labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	xRange := &chart.ContinuousRange{Min: 0, Max: float64(len(labels) - 1)}
	if len(labels) == 1 {
		xRange = &chart.ContinuousRange{Min: -0.5, Max: 0.5}
	}
	yAxis := chart.YAxis{Name: spec.YTitle}
	if minY == maxY {
		yAxis.Range = &chart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}

	width, height := spec.Width, spec.Height
	if width <= 0 {
		width = cs.width
	}
	if height <= 0 {
		height = cs.height
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 40}},
		XAxis:      chart.XAxis{Name: spec.XTitle, Ticks: ticks, Range: xRange},
		YAxis:      yAxis,
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.LegendThin(&ch)}
	return ch, nil
}

func seriesStyle(st chartset.Style) chart.Style {
	col := parseColor(st.Color)
	out := chart.Style{
		StrokeColor: col,
		StrokeWidth: st.Width,
		DotColor:    col,
		DotWidth:    3,
	}
	if out.StrokeWidth == 0 {
		out.StrokeWidth = 2
	}
	if st.HidePoints {
		out.DotWidth = 0
	}
	for _, d := range st.Dash {
		out.StrokeDashArray = append(out.StrokeDashArray, float64(d))
	}
	return out
}

// parseColor reads the colors chartset.ParseColor accepts. Anything else is
// drawn gray.
func parseColor(s string) drawing.Color {
	c, ok := chartset.ParseColor(s)
	if !ok {
		return chart.ColorAlternateGray
	}
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(c.A * 255))}
}

type chartHandle struct {
	id      string
	surface *ChartSurface
}

func (h *chartHandle) ID() string { return h.id }

func (h *chartHandle) Release() error {
	h.surface.mu.Lock()
	delete(h.surface.images, h.id)
	h.surface.mu.Unlock()
	return nil
}
