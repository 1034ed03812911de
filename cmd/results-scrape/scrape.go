package main

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/poku-e/shootingboard/internal/page"
	"github.com/poku-e/shootingboard/internal/rowfilter"
)

// tables maps the --table presets to row selectors.
var tables = map[string]page.Table{
	"ranking": page.RankTable,
	"history": page.HistoryTable,
	"players": page.PlayerTable,
}

func tableNames() []string {
	names := make([]string, 0, len(tables))
	for k := range tables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// result is a scraped table after filtering.
type result struct {
	doc     *goquery.Document
	records []rowfilter.Record
	vis     []rowfilter.Visibility
}

// scrape reads the rows of t from body, resolves each row's first link
// against base into the "href" attribute, and applies state to the rows and
// the document.
func scrape(body []byte, base *url.URL, t page.Table, state rowfilter.FilterState) (result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return result{}, err
	}
	records := page.ExtractRecords(doc, t)
	if len(records) == 0 {
		return result{}, fmt.Errorf("no rows match %q; check --rows or that the page is server-rendered", t.Rows)
	}
	doc.Find(t.Rows).Each(func(i int, tr *goquery.Selection) {
		if h, ok := tr.Find("a[href]").First().Attr("href"); ok {
			records[i].Attrs["href"] = resolve(base, h)
		}
	})
	vis := rowfilter.ComputeVisibility(records, state)
	if err := page.ApplyVisibility(doc, t, vis); err != nil {
		return result{}, err
	}
	return result{doc: doc, records: records, vis: vis}, nil
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	ru, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(ru).String()
}
