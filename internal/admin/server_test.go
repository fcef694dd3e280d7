package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uav-testgen/internal/ledger"
	"uav-testgen/internal/search"
)

func newProgress() *search.Progress {
	p := search.NewProgress("c-1", 20, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	p.SetPhase(search.PhaseMutation)
	p.SetSeeds([]search.Seed{{ID: 2, Path: "seeds/base_config_2.yaml", Record: ledger.Record{Distance: 0.5}}}, 3)
	p.SetIteration(2, 2)
	p.AddRecord(ledger.Record{Iteration: 0, Distance: 0.5, Phase: search.PhaseSeed})
	p.AddRecord(ledger.Record{Iteration: 1, Distance: 1.8, Phase: search.PhaseMutation})
	p.AddRecord(ledger.Record{Iteration: 2, Distance: 0.2, Phase: search.PhaseMutation, CrashAdjacent: true})
	return p
}

func TestHandleStatus(t *testing.T) {
	server := NewServer(newProgress(), 1.5)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var st search.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if st.Phase != search.PhaseMutation || st.Iteration != 2 || st.Budget != 20 || st.SeedCost != 3 {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.BestDistance == nil || *st.BestDistance != 0.2 {
		t.Errorf("unexpected best distance: %v", st.BestDistance)
	}
}

func TestHandleRecords(t *testing.T) {
	server := NewServer(newProgress(), 1.5)
	cases := []struct {
		name  string
		query string
		want  []int
		code  int
	}{
		{"run order", "", []int{0, 1, 2}, http.StatusOK},
		{"closest first", "?sort=distance", []int{2, 0, 1}, http.StatusOK},
		{"limited", "?sort=distance&limit=1", []int{2}, http.StatusOK},
		{"bad limit", "?limit=x", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records"+tc.query, nil))
			if w.Code != tc.code {
				t.Fatalf("status = %d, want %d", w.Code, tc.code)
			}
			if tc.code != http.StatusOK {
				return
			}
			var rows []ledger.Record
			if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if len(rows) != len(tc.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tc.want))
			}
			for i, r := range rows {
				if r.Iteration != tc.want[i] {
					t.Fatalf("row %d iteration %d, want %d", i, r.Iteration, tc.want[i])
				}
			}
		})
	}
}

func TestHandleSeedsEmpty(t *testing.T) {
	server := NewServer(search.NewProgress("c-2", 10, time.Now()), 1.5)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seeds", nil))
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestHandleIndex(t *testing.T) {
	server := NewServer(newProgress(), 1.5)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "Campaign c-1") || !strings.Contains(body, "0.200") {
		t.Fatalf("unexpected index page (%d):\n%s", w.Code, body)
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
