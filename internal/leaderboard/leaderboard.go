// Package leaderboard ranks profiles by cumulative score.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claude/liftscore/internal/config"
	"github.com/claude/liftscore/internal/models"
	"github.com/coocood/freecache"
	"github.com/google/uuid"
)

const cacheSize = 4 * 1024 * 1024

// Store is the ranking query surface used by Board.
type Store interface {
	TopProfiles(ctx context.Context, limit int) ([]models.Profile, error)
	RankOf(ctx context.Context, userID uuid.UUID) (rank, total int, err error)
}

// Entry is one row of the leaderboard.
type Entry struct {
	Rank           int       `json:"rank"`
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	ProfilePicture *string   `json:"profilePicture"`
	Score          float64   `json:"score"`
}

// Standing is a single user's position. Percentile is the share of users ranked
// at or below them, so rank 1 of 4 is 100 and rank 4 of 4 is 25.
type Standing struct {
	UserID     uuid.UUID `json:"userId"`
	Rank       int       `json:"rank"`
	Total      int       `json:"total"`
	Percentile float64   `json:"percentile"`
}

// Board serves leaderboard reads through a short-lived in-memory cache.
type Board struct {
	store    Store
	cache    *freecache.Cache
	ttl      int
	maxLimit int
	log      *slog.Logger
}

// New creates a Board.
func New(store Store, cfg config.LeaderboardConfig, log *slog.Logger) *Board {
	ttl := int(cfg.CacheTTL.Seconds())
	if ttl < 1 {
		ttl = 1
	}
	return &Board{
		store:    store,
		cache:    freecache.NewCache(cacheSize),
		ttl:      ttl,
		maxLimit: cfg.Limit,
		log:      log,
	}
}

// Top returns the highest-scoring profiles. limit is clamped to the configured maximum.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > b.maxLimit {
		limit = b.maxLimit
	}
	key := []byte(fmt.Sprintf("top::%d", limit))

	var entries []Entry
	if b.fromCache(key, &entries) {
		return entries, nil
	}

	profiles, err := b.store.TopProfiles(ctx, limit)
	if err != nil {
		return nil, models.StoreFailure("Leaderboard could not be loaded", err)
	}
	entries = rank(profiles)
	b.toCache(key, entries)
	return entries, nil
}

// Rank returns the user's standing.
func (b *Board) Rank(ctx context.Context, userID uuid.UUID) (*Standing, error) {
	key := []byte("rank::" + userID.String())

	var s Standing
	if b.fromCache(key, &s) {
		return &s, nil
	}

	r, total, err := b.store.RankOf(ctx, userID)
	if err != nil {
		return nil, models.StoreFailure("Rank could not be loaded", err)
	}
	s = Standing{UserID: userID, Rank: r, Total: total, Percentile: percentile(r, total)}
	b.toCache(key, s)
	return &s, nil
}

// Invalidate drops all cached rankings. Called after every score change.
func (b *Board) Invalidate() {
	b.cache.Clear()
}

func (b *Board) fromCache(key []byte, v any) bool {
	data, err := b.cache.Get(key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		b.log.Warn("dropping unreadable leaderboard cache entry", "key", string(key), "error", err)
		b.cache.Del(key)
		return false
	}
	return true
}

func (b *Board) toCache(key []byte, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := b.cache.Set(key, data, b.ttl); err != nil {
		b.log.Debug("leaderboard cache set failed", "key", string(key), "error", err)
	}
}

// rank assigns competition ranks to profiles already ordered by score:
// equal scores share a rank and the next rank skips accordingly.
func rank(profiles []models.Profile) []Entry {
	entries := make([]Entry, len(profiles))
	for i, p := range profiles {
		r := i + 1
		if i > 0 && p.Score == profiles[i-1].Score {
			r = entries[i-1].Rank
		}
		entries[i] = Entry{
			Rank:           r,
			UserID:         p.UserID,
			Name:           p.Name,
			Username:       p.Username,
			ProfilePicture: p.ProfilePicture,
			Score:          p.Score,
		}
	}
	return entries
}

func percentile(rank, total int) float64 {
	if total <= 0 || rank <= 0 {
		return 0
	}
	return 100 * float64(total-rank+1) / float64(total)
}
