package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/poku-e/shootingboard/internal/page"
	"github.com/poku-e/shootingboard/internal/rowfilter"
)

const rankingHTML = `<html><body>
<div id="avg-AR60"><table><tbody>
<tr class="rank-row" data-id="1" data-year="2022" data-gender="男"><td>1</td><td class="player-name-cell"><a href="/player/1">鈴木 一郎</a></td><td>612.5</td></tr>
<tr class="rank-row" data-id="3" data-year="2023" data-gender="男"><td>2</td><td class="player-name-cell"><a href="/player/3">佐藤 次郎</a></td><td>598.0</td></tr>
<tr class="rank-row" data-id="2" data-year="2023" data-gender="女"><td>1</td><td class="player-name-cell"><a href="/player/2">田中 花子</a></td><td>620.0</td></tr>
</tbody></table></div>
</body></html>`

func noBackoff(t *testing.T) {
	t.Helper()
	saved := backoffs
	backoffs = []time.Duration{0, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { backoffs = saved })
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	noBackoff(t)
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(rankingHTML))
	}))
	defer ts.Close()

	body, base, err := fetch(context.Background(), ts.Client(), ts.URL+"/ranking")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, string(body), "鈴木 一郎")
	assert.Equal(t, "/ranking", base.Path)
}

func TestFetchGivesUp(t *testing.T) {
	noBackoff(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, _, err := fetch(context.Background(), ts.Client(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestFetchBadStatus(t *testing.T) {
	noBackoff(t)
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "no such page", http.StatusNotFound)
	}))
	defer ts.Close()

	_, _, err := fetch(context.Background(), ts.Client(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestScrape(t *testing.T) {
	base, err := url.Parse("http://example.test/ranking")
	require.NoError(t, err)

	state := rowfilter.FilterState{Query: "佐藤次郎"}.With("gender", "男")
	res, err := scrape([]byte(rankingHTML), base, page.RankTable, state)
	require.NoError(t, err)
	require.Len(t, res.records, 3)

	assert.Equal(t, "3", res.records[1].ID)
	assert.Equal(t, "佐藤 次郎", res.records[1].Text)
	assert.Equal(t, "http://example.test/player/3", res.records[1].Attrs["href"])
	assert.Equal(t, []rowfilter.Visibility{
		{ID: "1", Visible: false, Highlight: false},
		{ID: "3", Visible: true, Highlight: true},
		{ID: "2", Visible: false, Highlight: false},
	}, res.vis)

	rows := res.doc.Find(".rank-row")
	style, _ := rows.Eq(0).Attr("style")
	assert.Contains(t, style, "display:none;")
	assert.True(t, rows.Eq(1).HasClass(page.HighlightClass))
}

func TestScrapeNoRows(t *testing.T) {
	_, err := scrape([]byte(rankingHTML), nil, page.HistoryTable, rowfilter.FilterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".history-row")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCSVFromURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rankingHTML))
	}))
	defer ts.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "ranking.csv")
	htmlOut := filepath.Join(dir, "filtered.html")
	msg, err := run(t, "--url", ts.URL+"/ranking", "--attr", "year=2023", "--out", out, "--html", htmlOut)
	require.NoError(t, err)
	assert.Contains(t, msg, "2 of 3 rows (0 matched) -> "+out)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "佐藤 次郎")
	assert.Contains(t, text, "田中 花子")
	assert.NotContains(t, text, "鈴木 一郎")
	assert.Contains(t, text, ts.URL+"/player/2")

	saved, err := os.ReadFile(htmlOut)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(saved))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(`.rank-row[style*="display:none"]`).Length())
}

func TestRunXLSXFromFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "saved.html")
	require.NoError(t, os.WriteFile(in, []byte(rankingHTML), 0o644))
	out := filepath.Join(dir, "avg.xlsx")

	_, err := run(t, "--file", in, "--rows", "#avg-AR60 .rank-row", "--text", ".player-name-cell", "--query", "すずき 一郎 鈴木", "--out", out)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("results")
	require.NoError(t, err)
	// header only: the query matches no name
	assert.Len(t, rows, 1)
}

func TestRunErrors(t *testing.T) {
	_, err := run(t, "--file", "x.html", "--out", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".csv or .xlsx")

	_, err = run(t, "--file", "x.html", "--table", "teams", "--out", "x.csv")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown table"))

	_, err = run(t, "--out", "x.csv")
	require.Error(t, err)
}
