// Command results-scrape fetches a rendered results page, filters one of its
// tables the way the site does, and saves the visible rows to CSV or XLSX.
//
// Usage examples:
//
//	results-scrape --url http://localhost:8080/ranking --table ranking --query 鈴木 --out ranking.csv
//	results-scrape --url http://localhost:8080/player/12 --table history --attr event=AR60 --out history.xlsx
//	results-scrape --file saved.html --rows "#avg-AR60 .rank-row" --text .player-name-cell --out avg.csv --html filtered.html
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/export"
	sblog "github.com/poku-e/shootingboard/internal/log"
	"github.com/poku-e/shootingboard/internal/page"
	"github.com/poku-e/shootingboard/internal/rowfilter"
)

type options struct {
	pageURL string
	file    string
	out     string
	html    string
	table   string
	rows    string
	text    string
	query   string
	attrs   map[string]string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "results-scrape",
		Short: "Scrape and filter a results table into CSV or XLSX",
		Long: `Fetch a results page (or read a saved one), filter one of its tables by text
query and data-* attributes, and write the visible rows to CSV or XLSX.
--html also saves the page with hidden and highlighted rows marked.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sblog.Setup(o.verbose, false)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.pageURL, "url", "", "page URL to fetch")
	f.StringVar(&o.file, "file", "", "read a saved page instead of fetching")
	f.StringVarP(&o.out, "out", "o", "", "output file path (.csv or .xlsx)")
	f.StringVar(&o.html, "html", "", "also write the filtered page here")
	f.StringVar(&o.table, "table", "ranking", "table preset: "+strings.Join(tableNames(), ", "))
	f.StringVar(&o.rows, "rows", "", "CSS selector for the rows (overrides --table)")
	f.StringVar(&o.text, "text", "", "CSS selector for the searchable cell within a row (with --rows)")
	f.StringVar(&o.query, "query", "", "text search (spaces and case ignored)")
	f.StringToStringVar(&o.attrs, "attr", nil, "attribute filter key=value (repeatable)")
	f.DurationVar(&o.timeout, "timeout", 60*time.Second, "overall time limit")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	cmd.MarkFlagsOneRequired("url", "file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (o *options) target() (page.Table, error) {
	if o.rows != "" {
		return page.Table{Rows: o.rows, Text: o.text}, nil
	}
	t, ok := tables[o.table]
	if !ok {
		return page.Table{}, fmt.Errorf("unknown table %q (%s)", o.table, strings.Join(tableNames(), ", "))
	}
	return t, nil
}

func (o *options) state() rowfilter.FilterState {
	s := rowfilter.FilterState{Query: o.query}
	keys := make([]string, 0, len(o.attrs))
	for k := range o.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = s.With(k, o.attrs[k])
	}
	return s
}

func (o *options) load(ctx context.Context) ([]byte, *url.URL, error) {
	if o.file != "" {
		b, err := os.ReadFile(o.file)
		return b, nil, err
	}
	return fetch(ctx, httpClient(25*time.Second), o.pageURL)
}

func (o *options) run(ctx context.Context, w io.Writer) error {
	ext := strings.ToLower(filepath.Ext(o.out))
	if ext != ".csv" && ext != ".xlsx" {
		return errors.New("out must end with .csv or .xlsx")
	}
	t, err := o.target()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	body, base, err := o.load(ctx)
	if err != nil {
		return err
	}
	res, err := scrape(body, base, t, o.state())
	if err != nil {
		return err
	}
	slog.Debug("scraped", "rows", len(res.records), "selector", t.Rows)

	switch ext {
	case ".csv":
		err = writeCSV(o.out, res.records, res.vis)
	case ".xlsx":
		err = export.WriteXLSX(o.out, "results", res.records, res.vis, nil)
	}
	if err != nil {
		return err
	}
	if o.html != "" {
		doc, err := res.doc.Html()
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.html, []byte(doc), 0o644); err != nil {
			return err
		}
	}

	visible, highlighted := rowfilter.Counts(res.vis)
	ok := color.New(color.FgGreen)
	_, err = fmt.Fprintf(w, "%s %d of %d rows (%d matched) -> %s\n", ok.Sprint("OK:"), visible, len(res.records), highlighted, o.out)
	return err
}

func writeCSV(path string, records []rowfilter.Record, vis []rowfilter.Visibility) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, records, vis); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	red := color.New(color.FgRed)
	fmt.Fprintf(os.Stderr, "%s %v\n", red.Sprint("ERROR:"), err)
	os.Exit(1)
}
