package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/leaderboard"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/stats"
	"github.com/claude/liftscore/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the LiftScore REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server. The session token identifies the user,
// so the userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL and
// authenticating with a session token from sign-in.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, _ uuid.UUID, start, end time.Time) ([]models.Workout, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end", end.Format(time.RFC3339))
	}

	var ws []models.Workout
	if err := c.get(ctx, "/api/v1/workouts", params, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *HTTPClient) GetStatistics(ctx context.Context, _ uuid.UUID) (*stats.Summary, error) {
	var s stats.Summary
	if err := c.get(ctx, "/api/v1/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, _ uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := c.get(ctx, "/api/v1/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var entries []leaderboard.Entry
	if err := c.get(ctx, "/api/v1/leaderboard", params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) GetStanding(ctx context.Context, _ uuid.UUID) (*leaderboard.Standing, error) {
	var s leaderboard.Standing
	if err := c.get(ctx, "/api/v1/leaderboard/me", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]catalog.Exercise, error) {
	var exercises []catalog.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, _ uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingPeriod, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	params.Set("bucket", bucket)

	var periods []storage.TrainingPeriod
	if err := c.get(ctx, "/api/v1/stats/periods", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}
