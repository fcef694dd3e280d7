package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/search"
)

// Source is the campaign state the server exposes. *search.Progress satisfies it.
type Source interface {
	Status() search.Status
	Records() []ledger.Record
	Seeds() []search.Seed
}

type Server struct {
	Progress  Source
	Threshold float64
	tpl       *template.Template
	mux       *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(progress Source, threshold float64) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"dist": func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) },
	}).ParseFS(content, "templates/index.html"))
	s := &Server{Progress: progress, Threshold: threshold, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/records", s.handleRecords)
	s.mux.HandleFunc("/seeds", s.handleSeeds)
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	rows := ledger.Ranked(s.Progress.Records())
	if len(rows) > 10 {
		rows = rows[:10]
	}
	data := struct {
		Status    search.Status
		Stats     ledger.Stats
		Best      []ledger.Record
		Seeds     []search.Seed
		Threshold float64
	}{
		Status:    s.Progress.Status(),
		Stats:     ledger.Summarize(s.Progress.Records(), s.Threshold),
		Best:      rows,
		Seeds:     s.Progress.Seeds(),
		Threshold: s.Threshold,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Warn("render index", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Progress.Status())
}

// handleRecords lists fitness records in run order, or closest first with ?sort=distance.
// ?limit=N keeps the first N.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	rows := s.Progress.Records()
	if r.URL.Query().Get("sort") == "distance" {
		rows = ledger.Ranked(rows)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n < len(rows) {
			rows = rows[:n]
		}
	}
	if rows == nil {
		rows = []ledger.Record{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSeeds(w http.ResponseWriter, r *http.Request) {
	seeds := s.Progress.Seeds()
	if seeds == nil {
		seeds = []search.Seed{}
	}
	writeJSON(w, seeds)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
