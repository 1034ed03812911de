// Package export writes filtered tables and composed charts to CSV and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/rowfilter"
)

// Chart is one composed chart to place on its own sheet.
type Chart struct {
	Title  string
	Labels []string
	Series []chartset.Series
}

// Visible returns the records whose visibility entry is true. A nil vis
// keeps every record.
func Visible(records []rowfilter.Record, vis []rowfilter.Visibility) []rowfilter.Record {
	if vis == nil {
		return records
	}
	out := make([]rowfilter.Record, 0, len(records))
	for i, r := range records {
		if i < len(vis) && vis[i].Visible {
			out = append(out, r)
		}
	}
	return out
}

// AttrKeys is the sorted union of attribute names.
func AttrKeys(records []rowfilter.Record) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range records {
		for k := range r.Attrs {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func header(keys []string) []string {
	return append([]string{"id", "text"}, keys...)
}

func row(r rowfilter.Record, keys []string) []string {
	out := []string{r.ID, r.Text}
	for _, k := range keys {
		out = append(out, r.Attrs[k])
	}
	return out
}

// WriteCSV writes the visible records with one column per attribute.
func WriteCSV(w io.Writer, records []rowfilter.Record, vis []rowfilter.Visibility) error {
	rows := Visible(records, vis)
	keys := AttrKeys(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header(keys)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(row(r, keys)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Workbook builds a workbook holding the visible records on sheet and one
// extra sheet per chart with its data grid and a native line chart.
func Workbook(sheet string, records []rowfilter.Record, vis []rowfilter.Visibility, charts []Chart) (*excelize.File, error) {
	if sheet == "" {
		sheet = "Sheet1"
	}
	sheet = sheetName(sheet)
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeRows(f, sheet, records, vis); err != nil {
		_ = f.Close()
		return nil, err
	}
	used := map[string]bool{sheet: true}
	for i, c := range charts {
		name := sheetName(c.Title)
		if name == "" || used[name] {
			name = sheetName(fmt.Sprintf("chart%d", i+1))
		}
		used[name] = true
		if err := writeChart(f, name, c); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("chart %q: %w", c.Title, err)
		}
	}
	return f, nil
}

// WriteXLSX saves Workbook's output to path.
func WriteXLSX(path, sheet string, records []rowfilter.Record, vis []rowfilter.Visibility, charts []Chart) error {
	f, err := Workbook(sheet, records, vis, charts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeRows(f *excelize.File, sheet string, records []rowfilter.Record, vis []rowfilter.Visibility) error {
	rows := Visible(records, vis)
	keys := AttrKeys(rows)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(header(keys))); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(row(r, keys))); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func toCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// writeChart lays out labels in column A and one column per series, then
// adds a line chart over that grid. Absent points stay empty cells and the
// chart spans them.
func writeChart(f *excelize.File, sheet string, c Chart) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	labels := c.Labels
	if labels == nil {
		labels = chartset.Axis(c.Series)
	}
	head := []interface{}{"label"}
	for _, s := range c.Series {
		head = append(head, s.Label)
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	cols := make([][]*float64, len(c.Series))
	for j, s := range c.Series {
		cols[j] = s.ValuesOn(labels)
	}
	for i, l := range labels {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(sheet, cell, l); err != nil {
			return err
		}
		for j := range c.Series {
			v := cols[j][i]
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+2, i+2)
			if err := f.SetCellFloat(sheet, cell, *v, -1, 64); err != nil {
				return err
			}
		}
	}
	if len(labels) == 0 || len(c.Series) == 0 {
		return nil
	}

	ref := quoteSheet(sheet)
	last := len(labels) + 1
	ch := &excelize.Chart{
		Type:         excelize.Line,
		Title:        []excelize.RichTextRun{{Text: c.Title}},
		ShowBlanksAs: "span",
		Legend:       excelize.ChartLegend{Position: "bottom"},
		Dimension:    excelize.ChartDimension{Width: 720, Height: 360},
	}
	for j, s := range c.Series {
		col, _ := excelize.ColumnNumberToName(j + 2)
		ch.Series = append(ch.Series, chartSeries(ref, col, last, s))
	}
	anchor, _ := excelize.CoordinatesToCellName(len(c.Series)+3, 2)
	return f.AddChart(sheet, anchor, ch)
}

// chartSeries binds column col of sheet rows 2..last to one chart line.
func chartSeries(ref, col string, last int, s chartset.Series) excelize.ChartSeries {
	cs := excelize.ChartSeries{
		Name:       fmt.Sprintf("%s!$%s$1", ref, col),
		Categories: fmt.Sprintf("%s!$A$2:$A$%d", ref, last),
		Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ref, col, col, last),
		Line:       excelize.ChartLine{Width: lineWidth(s.Style.Width)},
	}
	if hex := hexColor(s.Style.Color); hex != "" {
		cs.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}}
	}
	switch {
	case s.IsReference():
		// goal lines: heavier, straight and without markers
		cs.Line.Width = lineWidth(s.Style.Width) + 1
		cs.Marker = excelize.ChartMarker{Symbol: "none"}
	case s.Style.HidePoints:
		cs.Marker = excelize.ChartMarker{Symbol: "none"}
		cs.Line.Smooth = s.Style.Tension > 0
	default:
		cs.Marker = excelize.ChartMarker{Symbol: "circle", Size: 5}
		cs.Line.Smooth = s.Style.Tension > 0
	}
	return cs
}

func lineWidth(w float64) float64 {
	if w <= 0 {
		return 1.5
	}
	return w
}

var badSheetRe = regexp.MustCompile(`[\[\]:*?/\\']`)

// sheetName trims s to a legal worksheet name.
func sheetName(s string) string {
	s = strings.TrimSpace(badSheetRe.ReplaceAllString(s, " "))
	r := []rune(s)
	if len(r) > 31 {
		r = r[:31]
	}
	return strings.TrimSpace(string(r))
}

func quoteSheet(s string) string {
	return "'" + s + "'"
}

// hexColor turns any color chartset.ParseColor reads into "RRGGBB", or ""
// when it cannot be read.
func hexColor(c string) string {
	rgba, ok := chartset.ParseColor(c)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02X%02X%02X", rgba.R, rgba.G, rgba.B)
}
