package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/config"
	pagesel "github.com/poku-e/shootingboard/internal/page"
	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func fixture() *scores.DB {
	return &scores.DB{
		Players: []scores.Player{
			{ID: 1, Name: "鈴木 一郎", Gender: scores.Male, EntryYear: 2022},
			{ID: 2, Name: "田中 花子", Gender: scores.Female, EntryYear: 2023},
		},
		Scores: []scores.Score{
			{ID: 1, PlayerID: 1, Date: day(2024, 5, 12), Match: "春季関東大会", Category: "Regular", Event: "AR60", Total: 610},
			{ID: 2, PlayerID: 1, Date: day(2024, 6, 2), Match: "東日本学生", Category: "Regular", Event: "SB3x20", Total: 560},
			{ID: 3, PlayerID: 1, Date: day(2025, 5, 11), Match: "春季関東大会", Category: "Regular", Event: "AR60", Total: 615},
			{ID: 4, PlayerID: 2, Date: day(2024, 5, 12), Match: "春季関東大会", Category: "Regular", Event: "AR60", Total: 620},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(fixture(), config.Config{})
	s.now = func() time.Time { return day(2025, 6, 1) }
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func post(t *testing.T, ts *httptest.Server, path string, v any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthzAndHeaders(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/compose", nil)
	require.NoError(t, err)
	opt, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	opt.Body.Close()
	assert.Equal(t, http.StatusNoContent, opt.StatusCode)
}

func TestAPIPlayers_Filter(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/players?q="+url.QueryEscape("田中")+"&year=2023")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Records    []rowfilter.Record     `json:"records"`
		Visibility []rowfilter.Visibility `json:"visibility"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Records, 2)
	assert.Equal(t, "2", out.Records[0].ID, "newest entry year first")
	assert.Equal(t, rowfilter.Visibility{ID: "2", Visible: true, Highlight: true}, out.Visibility[0])
	assert.False(t, out.Visibility[1].Visible)
}

func TestAPIPlayer_PersonalTarget(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/player/1?chart=0&target=600&event=AR60")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out playerResp
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Charts, 2)
	require.Len(t, out.Charts[0], 3)
	personal, ok := chartset.Reference(out.Charts[0], chartset.PersonalGoal)
	require.True(t, ok)
	assert.Equal(t, 600.0, *personal.Points[0].Y)
	assert.Len(t, out.Charts[1], 2)
	n, _ := rowfilter.Counts(out.Visibility)
	assert.Equal(t, 2, n)
}

func TestAPIPlayer_UnreadableTarget(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/player/1?chart=0&target=abc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out playerResp
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Charts, 2)
	_, ok := chartset.Reference(out.Charts[0], chartset.PersonalGoal)
	assert.False(t, ok)
}

func TestAPIPlayer_Errors(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := get(t, ts, "/api/player/99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts, "/api/player/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlayerChart_ReleasesImage(t *testing.T) {
	s, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/player/1/chart/0?target=600")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, pngMagic))
	assert.Equal(t, 0, s.surface.Live())

	resp, _ = get(t, ts, "/api/player/1/chart/9")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, s.surface.Live())
}

func TestTrendCharts(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/trends/0/chart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, pngMagic))

	resp, _ = get(t, ts, "/api/trends/2/chart")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no P60 scores")
}

func TestMatch(t *testing.T) {
	_, ts := newTestServer(t)
	name := url.PathEscape("春季関東大会")

	resp, body := get(t, ts, "/api/match/"+name)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Event    string            `json:"event"`
		Overview []chartset.Series `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "AR60", out.Event)
	assert.Len(t, out.Overview, 2)

	resp, body = get(t, ts, "/api/match/"+name+"/chart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, pngMagic))

	resp, body = get(t, ts, "/match/"+name)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "2024年度")

	resp, _ = get(t, ts, "/match/"+url.PathEscape("存在しない大会"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, ts, "/api/match/"+name+"/season/2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "620")
}

func TestRankingPage_ServerSideFilter(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/ranking?mode=max&event=AR60&q="+url.QueryEscape("すずき　"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#max-AR60").Length())
	assert.Equal(t, 2, doc.Find(".rank-row[style]").Length(), "no row matches the kana query")

	resp, body = get(t, ts, "/ranking?mode=max&event=AR60&q="+url.QueryEscape("鈴木"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	table := pagesel.RankTable.Within("#max-AR60")
	recs := pagesel.ExtractRecords(doc, table)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "男", recs[0].Attrs["gender"])
	first := doc.Find(table.Rows).First()
	assert.True(t, first.HasClass(pagesel.HighlightClass))
	assert.Contains(t, first.Text(), "615")

	resp, _ = get(t, ts, "/ranking?mode=median")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIRanking_Season(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/ranking?panel=avg-AR60&season=current")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Entries []scores.RankEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Entries, 1, "only the 2025 season score")
	assert.Equal(t, 615.0, out.Entries[0].Avg)

	resp, _ = get(t, ts, "/api/ranking?panel=avg-FR60")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIVisibility(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := post(t, ts, "/api/visibility", visibilityReq{
		Records: []rowfilter.Record{
			{ID: "a", Text: "Suzuki", Attrs: map[string]string{"event": "AR60"}},
			{ID: "b", Text: "Tanaka", Attrs: map[string]string{"event": "AR100"}},
		},
		State: rowfilter.FilterState{Attrs: map[string]string{"event": "AR60"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var vis []rowfilter.Visibility
	require.NoError(t, json.Unmarshal(body, &vis))
	assert.Equal(t, []rowfilter.Visibility{{ID: "a", Visible: true}, {ID: "b"}}, vis)

	bad, err := http.Post(ts.URL+"/api/visibility", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestAPICompose(t *testing.T) {
	_, ts := newTestServer(t)
	labels := []string{"d1", "d2", "d3"}
	base := []chartset.Series{chartset.NewSeries("AR60", labels, []*float64{chartset.Value(5), nil, chartset.Value(7)})}

	input := "abc"
	resp, body := post(t, ts, "/api/compose", composeReq{Base: base, Input: &input, Category: "goal"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []chartset.Series
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, base, out)

	resp, body = post(t, ts, "/api/compose", composeReq{Base: base, Reference: chartset.Value(20), Category: "goal"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	assert.Equal(t, chartset.KindReference, out[0].Kind)
	assert.Nil(t, out[1].Points[1].Y)

	resp, _ = post(t, ts, "/api/compose", composeReq{Base: base})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJSONBodyLimit(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	huge := `{"records":[` + strings.Repeat(`{"id":"x","text":"padding padding"},`, maxBody/30) + `{"id":"y"}]}`
	for _, path := range []string{"/api/visibility", "/api/compose"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(huge)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("[")))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestPages(t *testing.T) {
	_, ts := newTestServer(t)
	for _, path := range []string{"/", "/players?q=" + url.QueryEscape("田中"), "/player/1?chart=0&target=600&event=AR60"} {
		resp, body := get(t, ts, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"), path)
		assert.Contains(t, string(body), "shootingboard", path)
	}

	_, body := get(t, ts, "/player/1?event=SB3x20")
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Find(".history-row").Length())
	assert.Equal(t, 2, doc.Find(".history-row[style]").Length())
	assert.Equal(t, 2, doc.Find(".charts img").Length())
}

func TestSeasonPage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/match/"+url.PathEscape("春季関東大会")+"/2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "春季関東大会 2024年度", doc.Find("h1").Text())
	teams := doc.Find(".team-row")
	require.Equal(t, 2, teams.Length())
	assert.Contains(t, teams.Eq(0).Text(), "鈴木 一郎 (610.0)")
	assert.Contains(t, teams.Eq(1).Text(), "田中 花子 (620.0)")

	rows := doc.Find(".individual-row")
	require.Equal(t, 2, rows.Length())
	assert.Contains(t, rows.Eq(0).Text(), "田中 花子")
	assert.Contains(t, rows.Eq(1).Text(), "鈴木 一郎")

	resp, _ = get(t, ts, "/match/"+url.PathEscape("春季関東大会")+"/2019")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts, "/match/"+url.PathEscape("春季関東大会")+"/next")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchesPage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/matches")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)

	rows := doc.Find(".match-row")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "春季関東大会", rows.Eq(0).Find("a").First().Text())
	var years []string
	rows.Eq(0).Find("td").Eq(1).Find("a").Each(func(_ int, a *goquery.Selection) { years = append(years, a.Text()) })
	assert.Equal(t, []string{"2025", "2024"}, years)
	assert.Equal(t, "東日本学生", rows.Eq(1).Find("a").First().Text())
}

func TestIndexRecentScores(t *testing.T) {
	_, ts := newTestServer(t)
	_, body := get(t, ts, "/")
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)

	rows := doc.Find(".recent-row")
	require.Equal(t, 4, rows.Length())
	id, _ := rows.Eq(0).Attr("data-id")
	assert.Equal(t, "3", id)
	assert.Contains(t, rows.Eq(0).Text(), "2025/05/11")
	assert.Contains(t, rows.Eq(0).Text(), "615.0")
}

func TestReplaceAndMetrics(t *testing.T) {
	s, ts := newTestServer(t)
	s.Replace(&scores.DB{})
	resp, _ := get(t, ts, "/api/player/1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `shootingboard_http_requests_total{code="404",route="GET /api/player/{id}"} 1`)
	assert.Contains(t, text, "shootingboard_reloads_total 1")
	assert.Contains(t, text, "shootingboard_charts_live 0")
}
