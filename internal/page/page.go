// Package page runs row filters against server-rendered result tables.
package page

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/poku-e/shootingboard/internal/rowfilter"
)

// HighlightClass marks rows whose text matched the query.
const HighlightClass = "highlight-row"

// Table describes where the rows of one table live.
type Table struct {
	Rows string // e.g. "#avg-AR60 .rank-row"
	Text string // cell holding the searchable text, relative to a row
}

// Tables as the site renders them.
var (
	RankTable    = Table{Rows: ".rank-row", Text: ".player-name-cell"}
	HistoryTable = Table{Rows: ".history-row", Text: ""}
	PlayerTable  = Table{Rows: ".player-row", Text: ".player-name-cell"}
)

// Within narrows t to rows under container.
func (t Table) Within(container string) Table {
	return Table{Rows: container + " " + t.Rows, Text: t.Text}
}

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	displayRe = regexp.MustCompile(`(?i)display\s*:\s*none\s*;?`)
)

func textCondense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ExtractRecords reads one record per row. data-* attributes become Attrs,
// data-id (or the row position) becomes the ID, and the text cell (or the
// whole row when Text is empty) becomes Text.
func ExtractRecords(doc *goquery.Document, t Table) []rowfilter.Record {
	var out []rowfilter.Record
	doc.Find(t.Rows).Each(func(i int, tr *goquery.Selection) {
		rec := rowfilter.Record{ID: strconv.Itoa(i), Attrs: map[string]string{}}
		for _, a := range tr.Nodes[0].Attr {
			if !strings.HasPrefix(a.Key, "data-") {
				continue
			}
			key := strings.TrimPrefix(a.Key, "data-")
			if key == "id" {
				rec.ID = a.Val
				continue
			}
			rec.Attrs[key] = a.Val
		}
		cell := tr
		if t.Text != "" {
			cell = tr.Find(t.Text).First()
		}
		rec.Text = textCondense(cell.Text())
		out = append(out, rec)
	})
	return out
}

// ApplyVisibility writes vis back onto the rows of t: hidden rows get
// display:none, and the highlight class follows Highlight. vis must be in row
// order, as ComputeVisibility returns it for ExtractRecords' output.
func ApplyVisibility(doc *goquery.Document, t Table, vis []rowfilter.Visibility) error {
	rows := doc.Find(t.Rows)
	if rows.Length() != len(vis) {
		return fmt.Errorf("table %q has %d rows, got %d results", t.Rows, rows.Length(), len(vis))
	}
	rows.Each(func(i int, tr *goquery.Selection) {
		style, _ := tr.Attr("style")
		style = strings.TrimSpace(displayRe.ReplaceAllString(style, ""))
		if !vis[i].Visible {
			style = strings.TrimSpace(style + " display:none;")
		}
		if style == "" {
			tr.RemoveAttr("style")
		} else {
			tr.SetAttr("style", style)
		}
		if vis[i].Visible && vis[i].Highlight {
			tr.AddClass(HighlightClass)
		} else {
			tr.RemoveClass(HighlightClass)
		}
	})
	return nil
}

// Filter extracts, filters and writes back in one step. It returns the
// number of rows left visible.
func Filter(doc *goquery.Document, t Table, state rowfilter.FilterState) (int, error) {
	vis := rowfilter.ComputeVisibility(ExtractRecords(doc, t), state)
	if err := ApplyVisibility(doc, t, vis); err != nil {
		return 0, err
	}
	n, _ := rowfilter.Counts(vis)
	return n, nil
}
