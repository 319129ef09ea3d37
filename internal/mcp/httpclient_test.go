package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/stats"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Every request must carry the session token.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
		}
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestHTTPListWorkouts verifies the range is sent as RFC3339 query params
// and the JSON array is decoded.
func TestHTTPListWorkouts(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q", got)
			}
			if got := r.URL.Query().Get("end"); got != "2026-01-07T00:00:00Z" {
				t.Errorf("end=%q", got)
			}
			writeTestJSON(t, w, []models.Workout{{ID: uuid.New(), WorkoutScore: 12}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL+"/", "tok")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)

	ws, err := client.ListWorkouts(context.Background(), uuid.Nil, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 1 || ws[0].WorkoutScore != 12 {
		t.Errorf("workouts = %+v", ws)
	}
}

// TestHTTPStatisticsAndStanding verifies single-object responses.
func TestHTTPStatisticsAndStanding(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, stats.Summary{TotalWorkouts: 3, LongestStreak: 2})
		},
		"/api/v1/leaderboard/me": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, leaderboard.Standing{Rank: 2, Total: 4, Percentile: 75})
		},
		"/api/v1/leaderboard": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "3" {
				t.Errorf("limit=%q, want 3", got)
			}
			writeTestJSON(t, w, []leaderboard.Entry{{Rank: 1}, {Rank: 2}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "tok")
	ctx := context.Background()

	s, err := client.GetStatistics(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalWorkouts != 3 || s.LongestStreak != 2 {
		t.Errorf("summary = %+v", s)
	}

	st, err := client.GetStanding(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if st.Percentile != 75 {
		t.Errorf("percentile = %v, want 75", st.Percentile)
	}

	top, err := client.GetLeaderboard(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Errorf("got %d entries, want 2", len(top))
	}
}

// TestHTTPErrorMessage verifies the API's error message is surfaced.
func TestHTTPErrorMessage(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/profile": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			writeTestJSON(t, w, map[string]string{"error": "Session is invalid or has expired"})
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "tok").GetProfile(context.Background(), uuid.Nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Session is invalid") {
		t.Errorf("error = %v", err)
	}
}
