// Package profile reads and edits user profiles.
package profile

import (
	"context"
	"io"
	"log/slog"
	"math"
	"mime"
	"strings"
	"sync"

	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Store is the profile persistence used by Manager.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
	SetProfilePicture(ctx context.Context, userID uuid.UUID, ref string) (*models.Profile, error)
}

// PictureUploader stores picture bytes and returns a reference to them.
type PictureUploader interface {
	UploadProfilePicture(ctx context.Context, userID uuid.UUID, contentType string, body io.Reader, size int64) (string, error)
}

var pictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Manager owns profile reads and edits. Score is read-only here; it changes
// only through workout mutations.
type Manager struct {
	store    Store
	pictures PictureUploader
	log      *slog.Logger

	mu        sync.Mutex
	listeners map[int]func(models.Profile)
	nextID    int
}

// NewManager creates a Manager. pictures may be nil, which disables SetPicture.
func NewManager(store Store, pictures PictureUploader, log *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		pictures:  pictures,
		log:       log,
		listeners: make(map[int]func(models.Profile)),
	}
}

// NormalizeUsername turns a user-supplied username into its stored slug form.
func NormalizeUsername(s string) string {
	return slug.Make(strings.TrimSpace(s))
}

// Get returns the user's profile.
func (m *Manager) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, models.StoreFailure("Profile could not be loaded", err)
	}
	return p, nil
}

// BodyWeight returns the user's current body weight in kg.
func (m *Manager) BodyWeight(ctx context.Context, userID uuid.UUID) (float64, error) {
	p, err := m.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.WeightKg, nil
}

// Score returns the user's cumulative score.
func (m *Manager) Score(ctx context.Context, userID uuid.UUID) (float64, error) {
	p, err := m.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.Score, nil
}

// Update validates and writes the editable fields, then notifies listeners.
func (m *Manager) Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Username = NormalizeUsername(upd.Username)
	if upd.Name == "" {
		return nil, models.Invalid("name", "Name is required")
	}
	if upd.Username == "" {
		return nil, models.Invalid("username", "Username is required")
	}
	if math.IsNaN(upd.WeightKg) || math.IsInf(upd.WeightKg, 0) || upd.WeightKg < 0 {
		return nil, models.Invalid("weight", "Weight must be a non-negative number")
	}

	p, err := m.store.UpdateProfile(ctx, userID, upd)
	if err != nil {
		m.log.Error("profile update failed", "user_id", userID, "error", err)
		return nil, models.StoreFailure("Profile not saved successfully", err)
	}
	m.notify(*p)
	return p, nil
}

// SetPicture uploads a new profile picture and stores its reference.
func (m *Manager) SetPicture(ctx context.Context, userID uuid.UUID, contentType string, body io.Reader, size int64) (*models.Profile, error) {
	if m.pictures == nil {
		return nil, models.Invalid("picture", "Profile pictures are not enabled")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !pictureTypes[mediaType] {
		return nil, models.Invalid("picture", "Unsupported image type %q", contentType)
	}
	contentType = mediaType

	ref, err := m.pictures.UploadProfilePicture(ctx, userID, contentType, body, size)
	if err != nil {
		m.log.Error("profile picture upload failed", "user_id", userID, "error", err)
		return nil, models.StoreFailure("Profile picture not uploaded successfully", err)
	}
	p, err := m.store.SetProfilePicture(ctx, userID, ref)
	if err != nil {
		return nil, models.StoreFailure("Profile picture not saved successfully", err)
	}
	m.notify(*p)
	return p, nil
}

// OnChange registers fn to be called after every successful local edit.
// The returned func unregisters it.
func (m *Manager) OnChange(fn func(models.Profile)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(p models.Profile) {
	m.mu.Lock()
	fns := make([]func(models.Profile), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}
