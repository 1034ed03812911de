// Package server serves the result pages, their JSON payloads and chart
// images over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/config"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/scores"
)

// Server holds the loaded results and a shared chart surface. The results
// are swapped whole by Replace; handlers never modify them.
type Server struct {
	cfg     config.Config
	styles  chartset.StyleTable
	markers chartset.MarkerTable
	surface *render.ChartSurface
	reg     *prometheus.Registry
	metrics *metrics
	now     func() time.Time

	mu sync.RWMutex
	db *scores.DB
}

// New returns a server for db. cfg is completed with defaults.
func New(db *scores.DB, cfg config.Config) *Server {
	cfg = cfg.WithDefaults()
	s := &Server{
		cfg:     cfg,
		styles:  cfg.StyleTable(),
		markers: cfg.MarkerTable(),
		surface: render.NewChartSurface(render.ParseFormat(cfg.Chart.Format), cfg.Chart.Width, cfg.Chart.Height),
		reg:     prometheus.NewRegistry(),
		now:     time.Now,
		db:      db,
	}
	s.metrics = newMetrics(s.reg, s.surface)
	return s
}

// DB returns the current results.
func (s *Server) DB() *scores.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Replace swaps in freshly loaded results.
func (s *Server) Replace(db *scores.DB) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	s.metrics.reloads.Inc()
	slog.Info("results replaced", "players", len(db.Players), "scores", len(db.Scores))
}

// Handler returns the routed handler with logging, metrics and common
// headers applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /players", s.handlePlayers)
	mux.HandleFunc("GET /player/{id}", s.handlePlayer)
	mux.HandleFunc("GET /ranking", s.handleRanking)
	mux.HandleFunc("GET /matches", s.handleMatches)
	mux.HandleFunc("GET /match/{name}", s.handleMatch)
	mux.HandleFunc("GET /match/{name}/{year}", s.handleSeason)

	mux.HandleFunc("GET /api/players", s.apiPlayers)
	mux.HandleFunc("GET /api/player/{id}", s.apiPlayer)
	mux.HandleFunc("GET /api/player/{id}/chart/{index}", s.apiPlayerChart)
	mux.HandleFunc("GET /api/ranking", s.apiRanking)
	mux.HandleFunc("GET /api/match/{name}", s.apiMatch)
	mux.HandleFunc("GET /api/match/{name}/chart", s.apiMatchChart)
	mux.HandleFunc("GET /api/match/{name}/season/{year}", s.apiMatchSeason)
	mux.HandleFunc("GET /api/trends", s.apiTrends)
	mux.HandleFunc("GET /api/trends/{index}/chart", s.apiTrendChart)
	mux.HandleFunc("POST /api/visibility", s.apiVisibility)
	mux.HandleFunc("POST /api/compose", s.apiCompose)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return withCommonHeaders(s.instrument(mux))
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func writeHTML(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("template", "name", t.Name(), "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("error writing response", "err", err)
	}
}

func writeImage(w http.ResponseWriter, img render.Image) {
	w.Header().Set("Content-Type", img.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		slog.Debug("error writing response", "err", err)
	}
}

func withCommonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
