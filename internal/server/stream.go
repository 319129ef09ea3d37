package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/liftscore/internal/stats"
)

// handleStatsStream pushes a fresh statistics state over SSE on connect and
// after every change to the user's workouts, until the client disconnects or
// CloseStreams is called.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	sub, err := s.Subscribe(ctx, uid)
	if err != nil {
		s.log.Error("stats stream: subscribe failed", "user_id", uid, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Live statistics are unavailable"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	tracker := stats.NewTracker(s.Workouts, uid, s.Location, s.log)
	tracker.OnUpdate(func(st stats.State) {
		fmt.Fprintf(w, "event: stats\ndata: %s\n\n", mustJSON(st))
		flusher.Flush()
	})

	// Run owns sub and closes it on return.
	if err := tracker.Run(ctx, sub); err != nil && ctx.Err() == nil {
		s.log.Warn("stats stream ended", "user_id", uid, "error", err)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
