package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/view"
)

// row is a record with its filter outcome, as the templates draw it.
type row struct {
	rowfilter.Record
	Visible   bool
	Highlight bool
	Rank      int
	Value     float64
}

func rows(recs []rowfilter.Record, vis []rowfilter.Visibility) []row {
	out := make([]row, len(recs))
	for i, r := range recs {
		out[i] = row{Record: r, Visible: vis[i].Visible, Highlight: vis[i].Highlight}
	}
	return out
}

func (s *Server) since(r *http.Request) time.Time {
	if r.URL.Query().Get("season") == "current" {
		return scores.SeasonStart(s.now())
	}
	return time.Time{}
}

// ---------- pages ----------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	db := s.DB()
	p := view.NewIndexPage(db, nil)
	writeHTML(w, indexTmpl, map[string]any{
		"Players": p.Players,
		"Trends":  p.Trends,
		"Matches": db.Matches(),
		"Recent":  db.Recent(recentScores),
	})
}

// recentScores is how many of the newest scores the dashboard lists.
const recentScores = 10

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := playerFilter(q.Get("q"), q.Get("year"), q.Get("gender"))
	recs := s.DB().PlayerRecords()
	writeHTML(w, playersTmpl, map[string]any{
		"Query": state.Query,
		"Rows":  rows(recs, rowfilter.ComputeVisibility(recs, state)),
	})
}

func playerFilter(query, year, gender string) rowfilter.FilterState {
	return rowfilter.FilterState{Query: query}.With("year", year).With("gender", gender)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerPage(w, r)
	if !ok {
		return
	}
	defer p.Close()
	q := r.URL.Query()
	vis := p.FilterHistory(q.Get("match"), q.Get("event"))

	targetIndex := -1
	if i, err := strconv.Atoi(q.Get("chart")); err == nil && chartset.ParseReference(q.Get("target")) != nil {
		targetIndex = i
	}
	matches, events := historyOptions(p.History)
	writeHTML(w, playerTmpl, map[string]any{
		"Player":      p.Player,
		"Summary":     p.Summary,
		"Base":        p.Base,
		"TargetIndex": targetIndex,
		"Target":      q.Get("target"),
		"Match":       q.Get("match"),
		"Event":       q.Get("event"),
		"Matches":     matches,
		"Events":      events,
		"Rows":        rows(p.History, vis),
	})
}

func historyOptions(recs []rowfilter.Record) (matches, events []string) {
	seenM, seenE := map[string]bool{}, map[string]bool{}
	for _, r := range recs {
		if m := r.Attrs["match"]; m != "" && !seenM[m] {
			seenM[m] = true
			matches = append(matches, m)
		}
		if e := r.Attrs["event"]; e != "" && !seenE[e] {
			seenE[e] = true
			events = append(events, e)
		}
	}
	return scores.SortMatches(matches), scores.SortEvents(events)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := view.NewRankingPage(s.DB(), s.since(r))
	if m := q.Get("mode"); m != "" {
		if err := p.SwitchMode(m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if e := q.Get("event"); e != "" {
		if err := p.SwitchEvent(e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	panel := p.ActivePanel()
	vis, err := p.Search(panel, q.Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries := s.rankEntries(r, p.Mode, p.Event)
	out := rows(p.Panels[panel], vis)
	for i := range out {
		if i < len(entries) {
			out[i].Value = entries[i].Avg
			if p.Mode == view.ModeMax {
				out[i].Value = entries[i].Max
			}
		}
		out[i].Rank = rankWithin(out, i)
	}
	season := ""
	if !s.since(r).IsZero() {
		season = "current"
	}
	writeHTML(w, rankingTmpl, map[string]any{
		"Mode":        p.Mode,
		"Event":       p.Event,
		"Events":      scores.TargetEvents,
		"Panel":       panel,
		"Query":       p.Query(panel),
		"Season":      season != "",
		"SeasonParam": season,
		"Rows":        out,
	})
}

// rankEntries returns the panel's entries in the same male-then-female
// order view.NewRankingPage uses.
func (s *Server) rankEntries(r *http.Request, mode, event string) []scores.RankEntry {
	rk := s.DB().Rankings(s.since(r))
	var out []scores.RankEntry
	for _, g := range scores.Genders {
		if mode == view.ModeMax {
			out = append(out, rk[event][g].ByMax...)
		} else {
			out = append(out, rk[event][g].ByAvg...)
		}
	}
	return out
}

// rankWithin numbers rows from 1 within each gender.
func rankWithin(rs []row, i int) int {
	n := 1
	for j := 0; j < i; j++ {
		if rs[j].Attrs["gender"] == rs[i].Attrs["gender"] {
			n++
		}
	}
	return n
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	p := view.NewMatchYearsPage(s.DB(), r.PathValue("name"), s.styles, s.markers, nil)
	if len(p.History.Years) == 0 {
		http.NotFound(w, r)
		return
	}
	event := s.matchEvent(r)
	if err := p.Select(r.Context(), event); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, matchTmpl, map[string]any{
		"History":  p.History,
		"Events":   p.Events(),
		"Event":    event,
		"HasChart": len(p.Series()) > 0,
	})
}

type matchEntry struct {
	Name  string
	Years []int
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	db := s.DB()
	var list []matchEntry
	for _, name := range db.Matches() {
		list = append(list, matchEntry{Name: name, Years: db.Seasons(name)})
	}
	writeHTML(w, matchesTmpl, map[string]any{"Matches": list})
}

type seasonMember struct {
	Name  string
	Total float64
}

type seasonTeam struct {
	Event   string
	Total   float64
	Members []seasonMember
}

type seasonDivision struct {
	Label string
	Teams []seasonTeam
}

type seasonRow struct {
	scores.Score
	Rank int
	Name string
}

type seasonEvent struct {
	Event string
	Rows  []seasonRow
}

var divisionLabels = []struct{ key, label string }{
	{scores.Male, "男子"}, {scores.Female, "女子"}, {"mixed", "混合"},
}

func (s *Server) handleSeason(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		http.Error(w, "bad year", http.StatusBadRequest)
		return
	}
	db := s.DB()
	res := db.MatchSeason(r.PathValue("name"), year)
	if len(res.Individual) == 0 {
		http.NotFound(w, r)
		return
	}
	names := make(map[int64]string, len(db.Players))
	for _, p := range db.Players {
		names[p.ID] = p.Name
	}

	var divisions []seasonDivision
	for _, d := range divisionLabels {
		teams, ok := res.Teams[d.key]
		if !ok {
			continue
		}
		div := seasonDivision{Label: d.label}
		for _, t := range teams {
			st := seasonTeam{Event: t.Event, Total: t.Total}
			for _, m := range t.Members {
				st.Members = append(st.Members, seasonMember{Name: names[m.PlayerID], Total: m.Total})
			}
			div.Teams = append(div.Teams, st)
		}
		divisions = append(divisions, div)
	}

	events := make([]string, 0, len(res.Individual))
	for e := range res.Individual {
		events = append(events, e)
	}
	var individual []seasonEvent
	for _, e := range scores.SortEvents(events) {
		se := seasonEvent{Event: e}
		for i, sc := range res.Individual[e] {
			se.Rows = append(se.Rows, seasonRow{Score: sc, Rank: i + 1, Name: names[sc.PlayerID]})
		}
		individual = append(individual, se)
	}

	writeHTML(w, seasonTmpl, map[string]any{
		"Title":      fmt.Sprintf("%s %d年度", res.Match, res.Year),
		"Match":      res.Match,
		"Divisions":  divisions,
		"Individual": individual,
	})
}

func (s *Server) matchEvent(r *http.Request) string {
	if e := r.URL.Query().Get("event"); e != "" {
		return e
	}
	return s.cfg.InitialEvent
}

// ---------- JSON API ----------

func (s *Server) apiPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs := s.DB().PlayerRecords()
	writeJSON(w, map[string]any{
		"records":    recs,
		"visibility": rowfilter.ComputeVisibility(recs, playerFilter(q.Get("q"), q.Get("year"), q.Get("gender"))),
	})
}

type playerResp struct {
	Player     scores.Player          `json:"player"`
	Labels     []string               `json:"labels"`
	Charts     [][]chartset.Series    `json:"charts"`
	Summary    []scores.Summary       `json:"summary"`
	History    []rowfilter.Record     `json:"history"`
	Visibility []rowfilter.Visibility `json:"visibility"`
}

func (s *Server) apiPlayer(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerPage(w, r)
	if !ok {
		return
	}
	defer p.Close()
	q := r.URL.Query()
	if i, err := strconv.Atoi(q.Get("chart")); err == nil {
		if err := p.SetPersonalTarget(r.Context(), i, q.Get("target")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	resp := playerResp{
		Player:     p.Player,
		Labels:     p.Labels,
		Summary:    p.Summary,
		History:    p.History,
		Visibility: p.FilterHistory(q.Get("match"), q.Get("event")),
	}
	for i := range p.Base {
		resp.Charts = append(resp.Charts, p.Chart(i))
	}
	writeJSON(w, resp)
}

func (s *Server) apiPlayerChart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "bad chart index", http.StatusBadRequest)
		return
	}
	p, ok := s.playerPageOn(w, r, s.surface)
	if !ok {
		return
	}
	defer p.Close()
	if err := p.SetPersonalTarget(r.Context(), index, r.URL.Query().Get("target")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.serveHandle(w, r, p.Handle(index))
}

// playerPage builds an unrendered page for the {id} path value.
func (s *Server) playerPage(w http.ResponseWriter, r *http.Request) (*view.PlayerPage, bool) {
	return s.playerPageOn(w, r, nil)
}

func (s *Server) playerPageOn(w http.ResponseWriter, r *http.Request, surface render.Surface) (*view.PlayerPage, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return nil, false
	}
	p, err := view.NewPlayerPage(s.DB(), id, surface)
	if errors.Is(err, view.ErrUnknownPlayer) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if err := p.Init(r.Context()); err != nil {
		_ = p.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}

// serveHandle writes the image behind h. The caller releases h afterwards.
func (s *Server) serveHandle(w http.ResponseWriter, r *http.Request, h render.Handle) {
	if h == nil {
		http.NotFound(w, r)
		return
	}
	img, ok := s.surface.Image(h.ID())
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.metrics.charts.Inc()
	writeImage(w, img)
}

func (s *Server) apiRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := view.NewRankingPage(s.DB(), s.since(r))
	panel := q.Get("panel")
	if panel == "" {
		panel = p.ActivePanel()
	}
	vis, err := p.Search(panel, q.Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	mode, event, _ := view.Split(panel)
	writeJSON(w, map[string]any{
		"panel":      panel,
		"entries":    s.rankEntries(r, mode, event),
		"records":    p.Panels[panel],
		"visibility": vis,
	})
}

func (s *Server) apiMatch(w http.ResponseWriter, r *http.Request) {
	p := view.NewMatchYearsPage(s.DB(), r.PathValue("name"), s.styles, s.markers, nil)
	if len(p.History.Years) == 0 {
		http.NotFound(w, r)
		return
	}
	event := s.matchEvent(r)
	if err := p.Select(r.Context(), event); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"history":  p.History,
		"event":    event,
		"overview": p.Series(),
	})
}

func (s *Server) apiMatchChart(w http.ResponseWriter, r *http.Request) {
	p := view.NewMatchYearsPage(s.DB(), r.PathValue("name"), s.styles, s.markers, s.surface)
	defer p.Close()
	if err := p.Select(r.Context(), s.matchEvent(r)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.serveHandle(w, r, p.Handle())
}

func (s *Server) apiMatchSeason(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		http.Error(w, "bad year", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.DB().MatchSeason(r.PathValue("name"), year))
}

func (s *Server) apiTrends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.DB().MonthlyAverages(scores.TargetEvents))
}

func (s *Server) apiTrendChart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "bad chart index", http.StatusBadRequest)
		return
	}
	p := view.NewIndexPage(s.DB(), s.surface)
	defer p.Close()
	if err := p.Init(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.serveHandle(w, r, p.Handle(index))
}

type visibilityReq struct {
	Records []rowfilter.Record    `json:"records"`
	State   rowfilter.FilterState `json:"state"`
}

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// decodeJSON reads r's body into v, answering 413 or 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "invalid json", http.StatusBadRequest)
	return false
}

func (s *Server) apiVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityReq
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, rowfilter.ComputeVisibility(req.Records, req.State))
}

// composeReq carries the reference either as a number or as raw user
// input; Input wins when both are set.
type composeReq struct {
	Base      []chartset.Series `json:"base"`
	Reference *float64          `json:"reference"`
	Input     *string           `json:"input"`
	Category  string            `json:"category"`
}

func (s *Server) apiCompose(w http.ResponseWriter, r *http.Request) {
	var req composeReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		http.Error(w, "missing category", http.StatusBadRequest)
		return
	}
	ref := req.Reference
	if req.Input != nil {
		ref = chartset.ParseReference(*req.Input)
	}
	out := chartset.Compose(req.Base, ref, req.Category)
	slog.Debug("composed", "category", req.Category, "in", len(req.Base), "out", len(out))
	writeJSON(w, out)
}
