package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftscore/internal/ingest"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/stats"
	"github.com/claude/liftscore/internal/storage"
	"github.com/claude/liftscore/internal/workouts"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxPictureBytes = 5 << 20
	maxImportBytes  = 10 << 20
	maxJSONBytes    = 1 << 20
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.Auth.SignUp(r.Context(), req.Email, req.Password, req.Name, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.Auth.SignOut(r.Context(), tokenFromContext(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	p, err := s.Profiles.Get(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var upd models.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	p, err := s.Profiles.Update(r.Context(), uid, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSetPicture takes the raw image as the request body.
func (s *Server) handleSetPicture(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	if r.ContentLength > maxPictureBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "picture must be at most 5 MB"})
		return
	}
	if r.ContentLength <= 0 {
		writeJSON(w, http.StatusLengthRequired, map[string]string{"error": "Content-Length is required"})
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxPictureBytes)
	p, err := s.Profiles.SetPicture(r.Context(), uid, r.Header.Get("Content-Type"), body, r.ContentLength)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date: " + err.Error()})
		return
	}
	ws, err := s.Workouts.List(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts.Between(ws, start, end))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	wk, err := s.Workouts.Get(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var in models.WorkoutInput
	if !decodeJSON(w, r, &in) {
		return
	}
	wk, err := s.Workouts.Create(r.Context(), uid, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wk)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	var in models.WorkoutInput
	if !decodeJSON(w, r, &in) {
		return
	}
	wk, err := s.Workouts.Update(r.Context(), uid, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	if err := s.Workouts.Delete(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	ws, err := s.Workouts.List(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(ws, s.now(), s.Location))
}

// handleTrainingSummary defaults to the last six months in monthly buckets.
func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date: " + err.Error()})
		return
	}
	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.AddDate(0, -6, 0)
	}
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "1 month"
	}
	periods, err := s.Training.GetTrainingSummary(r.Context(), uid, start, end, bucket, s.Location)
	if err != nil {
		s.writeError(w, r, models.StoreFailure("Training summary could not be loaded", err))
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	entries, err := s.Leaderboard.Top(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStanding(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	st, err := s.Leaderboard.Rank(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Workouts.Catalog().All())
}

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	result, err := s.Alpha.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes), uid)
	s.logImport(uid, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha import error", "user_id", uid, "error", err)
		var ve *models.ValidationError
		var se *models.StoreError
		if errors.As(err, &ve) || errors.As(err, &se) {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.ImportLogs.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an upload's result to the import_logs table.
func (s *Server) logImport(uid uuid.UUID, result *ingest.Result, importErr error, durationMs int) {
	if s.ImportLogs == nil {
		return
	}
	entry := storage.ImportLog{
		UserID:     uid,
		Source:     "alpha_upload",
		Status:     "success",
		DurationMs: &durationMs,
	}
	if result != nil {
		entry.WorkoutsReceived = result.SessionsReceived
		entry.WorkoutsInserted = result.WorkoutsInserted
		entry.RejectedNames = result.RejectedNames
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}

	// The request context may already be cancelled by the time the client disconnects.
	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.ImportLogs.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", entry.Source, "error", err)
	}
}

// writeError maps service errors to status codes and user-facing messages.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	var ae *models.AuthError
	if errors.As(err, &ae) {
		return http.StatusUnauthorized, ae.Message
	}

	var se *models.StoreError
	hasAction := errors.As(err, &se)
	switch {
	case errors.Is(err, models.ErrNotFound):
		if hasAction {
			return http.StatusNotFound, se.Action
		}
		return http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrConflict):
		if hasAction {
			return http.StatusConflict, se.Action
		}
		return http.StatusConflict, "already exists"
	case hasAction:
		return http.StatusInternalServerError, se.Action
	}
	return http.StatusInternalServerError, "internal server error"
}

func workoutID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout id"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads optional start/end query parameters. Missing bounds are
// returned as zero times. A bare end date includes the whole day.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
		if len(v) == len("2006-01-02") {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return start, end, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
