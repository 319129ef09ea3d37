package mcp

import (
	"context"
	"math"
	"time"

	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/scoring"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if len(endStr) == len("2006-01-02") {
			// A bare date covers the whole day.
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List logged workouts in a date range, newest first. Each workout has its exercises (catalog ids), sets (weight in kg, reps), duration and the score recorded when it was saved."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetStatistics = mcp.NewTool("get_statistics",
	mcp.WithDescription("Lifetime training statistics: workout count, total and average weight volume (kg x reps), total and average reps, total score, current and longest daily streak."),
)

var toolGetProfile = mcp.NewTool("get_profile",
	mcp.WithDescription("The user's profile: name, username, body weight in kg and cumulative score."),
)

var toolGetLeaderboard = mcp.NewTool("get_leaderboard",
	mcp.WithDescription("Top users by cumulative score, plus the authenticated user's own rank and percentile."),
	mcp.WithNumber("limit", mcp.Description("Number of entries to return. Defaults to 10.")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly or monthly training totals: sessions, sets, reps, weight volume (kg x reps) and score per period, newest first."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum("1 week", "1 month")),
)

var toolCalculateScore = mcp.NewTool("calculate_score",
	mcp.WithDescription("Compute the score a single set would earn: (weight / body weight) * reps. Uses the profile body weight unless body_weight is given."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight lifted in kg (0 for a bodyweight set)")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions")),
	mcp.WithNumber("body_weight", mcp.Description("Body weight in kg. Defaults to the profile weight.")),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	ws, err := h.ds.ListWorkouts(ctx, uid, start, end)
	if err != nil {
		h.log.Warn("mcp get_workouts failed", "user_id", uid, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(ws)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStatistics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	summary, err := h.ds.GetStatistics(ctx, uid)
	if err != nil {
		h.log.Warn("mcp get_statistics failed", "user_id", uid, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProfile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	p, err := h.ds.GetProfile(ctx, uid)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(p)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	limit := req.GetInt("limit", 10)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	top, err := h.ds.GetLeaderboard(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	resp := struct {
		Top []leaderboard.Entry   `json:"top"`
		Me  *leaderboard.Standing `json:"me,omitempty"`
	}{Top: top}

	// A missing standing is not fatal; the top list is still useful.
	me, err := h.ds.GetStanding(ctx, uid)
	if err != nil {
		h.log.Warn("mcp get_leaderboard: standing failed", "user_id", uid, "error", err)
	} else {
		resp.Me = me
	}

	result, err := mcp.NewToolResultJSON(resp)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	if req.GetString("start", "") == "" {
		start = end.AddDate(0, -6, 0)
	}

	periods, err := h.ds.GetTrainingSummary(ctx, uid, start, end, req.GetString("bucket", "1 month"))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) calculateScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireFloat("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	if weight < 0 || math.IsNaN(weight) {
		return mcp.NewToolResultError("weight must not be negative"), nil
	}
	if reps < 0 || reps != math.Trunc(reps) {
		return mcp.NewToolResultError("reps must be a non-negative whole number"), nil
	}

	bodyWeight := req.GetFloat("body_weight", 0)
	if bodyWeight == 0 {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return mcp.NewToolResultError("body_weight is required when not authenticated"), nil
		}
		p, err := h.ds.GetProfile(ctx, uid)
		if err != nil {
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		bodyWeight = p.WeightKg
	}

	set := models.Set{WeightKg: weight, Reps: int(reps)}
	result, err := mcp.NewToolResultJSON(map[string]float64{
		"weight":     weight,
		"reps":       reps,
		"bodyWeight": bodyWeight,
		"score":      scoring.SetScore(set, bodyWeight),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
