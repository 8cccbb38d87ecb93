package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Session represents an authenticated session. The token is presented as a bearer token.
type Session struct {
	Token     string
	User      model.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Identity returns the verified identity carried by the session
func (s *Session) Identity() model.Identity {
	return model.Identity{UserID: s.User.ID, Username: s.User.Username}
}

// Service handles registration, login and bearer-token verification
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 7 * 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// Register creates a user account with a password and opens a session
func (s *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}

	// Storage enforces username uniqueness and reports model.ErrUsernameExists
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)))
	return s.createSession(user), nil
}

// Login authenticates a user and opens a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(user), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// VerifyToken resolves a bearer token to an identity. Any failure yields the anonymous identity.
func (s *Service) VerifyToken(token string) model.Identity {
	if token == "" {
		return model.Anonymous()
	}
	session, err := s.ValidateSession(token)
	if err != nil {
		return model.Anonymous()
	}
	return session.Identity()
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// createSession creates a new session for a user
func (s *Service) createSession(user *model.User) *Session {
	token := s.generateToken("sess_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		User:      *user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	session.User.PasswordHash = ""

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates a random token with a prefix
func (s *Service) generateToken(prefix string) string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// CleanExpiredSessions removes expired sessions and returns how many were removed
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// RunCleanup removes expired sessions on every tick until ctx is cancelled
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if removed := s.CleanExpiredSessions(); removed > 0 {
				s.logger.Info("expired sessions removed", slog.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
