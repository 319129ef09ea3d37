// Package auth signs users up and in, and checks sessions.
//
// A session is an HS256 JWT whose jti names a Redis key holding the user ID.
// Deleting the key revokes the token before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftscore/internal/config"
	"github.com/claude/liftscore/internal/models"
	"github.com/claude/liftscore/internal/observability"
	"github.com/claude/liftscore/internal/profile"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionKeyPrefix  = "liftscore-session||"
	minPasswordLength = 8
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgSessionInvalid     = "Session is invalid or has expired"
	msgAccountExists      = "An account with this email or username already exists"
)

// UserStore is the account persistence used by Manager.
type UserStore interface {
	CreateUserWithProfile(ctx context.Context, email, passwordHash, name, username string) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Session is an issued session token.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues, verifies and revokes sessions.
type Manager struct {
	users      UserStore
	rdb        redis.Cmdable
	secret     []byte
	issuer     string
	ttl        time.Duration
	bcryptCost int
	log        *slog.Logger

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	listeners map[int]func(userID uuid.UUID, signedIn bool)
	nextID    int
}

// NewManager creates a Manager.
func NewManager(users UserStore, rdb redis.Cmdable, cfg config.AuthConfig, log *slog.Logger) *Manager {
	return &Manager{
		users:      users,
		rdb:        rdb,
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		ttl:        cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
		listeners:  make(map[int]func(uuid.UUID, bool)),
	}
}

// SignUp creates an account with an empty profile and opens a session for it.
func (m *Manager) SignUp(ctx context.Context, email, password, name, username string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	username = profile.NormalizeUsername(username)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.Invalid("email", "A valid email address is required")
	}
	if len(password) < minPasswordLength {
		return nil, models.Invalid("password", "Password must be at least %d characters", minPasswordLength)
	}
	if name == "" {
		return nil, models.Invalid("name", "Name is required")
	}
	if username == "" {
		return nil, models.Invalid("username", "Username is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	userID, err := m.users.CreateUserWithProfile(ctx, email, string(hash), name, username)
	if err != nil {
		observability.RecordAuthEvent("signup", "failure")
		if errors.Is(err, models.ErrConflict) {
			return nil, &models.AuthError{Message: msgAccountExists, Err: err}
		}
		m.log.Error("sign-up failed", "email", email, "error", err)
		return nil, models.StoreFailure("Account not created successfully", err)
	}

	s, err := m.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthEvent("signup", "success")
	m.log.Info("user signed up", "user_id", userID)
	return s, nil
}

// SignIn checks the credentials and opens a new session.
// Unknown emails and wrong passwords fail with the same AuthError.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := m.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		observability.RecordAuthEvent("signin", "failure")
		return nil, &models.AuthError{Message: msgInvalidCredentials}
	}
	if err != nil {
		return nil, models.StoreFailure("Sign-in could not be completed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		observability.RecordAuthEvent("signin", "failure")
		return nil, &models.AuthError{Message: msgInvalidCredentials}
	}

	s, err := m.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthEvent("signin", "success")
	return s, nil
}

// SignOut revokes the session behind token.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	if err := m.rdb.Del(ctx, sessionKeyPrefix+claims.ID).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return &models.AuthError{Message: msgSessionInvalid, Err: err}
	}
	observability.RecordAuthEvent("signout", "success")
	m.notify(userID, false)
	return nil
}

// Verify returns the user ID of a valid, unrevoked session token.
func (m *Manager) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := m.parse(token)
	if err != nil {
		return uuid.Nil, err
	}

	stored, err := m.rdb.Get(ctx, sessionKeyPrefix+claims.ID).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, &models.AuthError{Message: msgSessionInvalid}
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading session: %w", err)
	}
	if stored != claims.Subject {
		return uuid.Nil, &models.AuthError{Message: msgSessionInvalid}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, &models.AuthError{Message: msgSessionInvalid, Err: err}
	}
	return userID, nil
}

// OnSessionChanged registers fn to be called after every sign-up, sign-in and
// sign-out. The returned func unregisters it.
func (m *Manager) OnSessionChanged(fn func(userID uuid.UUID, signedIn bool)) (cancel func()) {
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

func (m *Manager) openSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	now := m.now()
	jti := m.newID()
	expires := now.Add(m.ttl)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        jti,
		Issuer:    m.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}

	if err := m.rdb.Set(ctx, sessionKeyPrefix+jti, userID.String(), m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	m.notify(userID, true)
	return &Session{Token: token, UserID: userID, ExpiresAt: expires}, nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &models.AuthError{Message: "Sign in required"}
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, &models.AuthError{Message: msgSessionInvalid, Err: err}
	}
	return claims, nil
}

func (m *Manager) notify(userID uuid.UUID, signedIn bool) {
	m.mu.Lock()
	fns := make([]func(uuid.UUID, bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(userID, signedIn)
	}
}
