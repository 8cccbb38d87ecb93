package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// ErrEmptyUsername is returned when creating a user without a username
var ErrEmptyUsername = errors.New("username is required")

// Service creates and fetches users
type Service struct {
	storage storage.Storage
	clock   clock.Clock
}

// New creates a new user Service
func New(storage storage.Storage, clock clock.Clock) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
	}
}

// Create stores a user without credentials
func (s *Service) Create(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	u := &model.User{
		ID:        model.UserID(uuid.NewString()),
		Username:  username,
		Email:     strings.TrimSpace(email),
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user with the password hash stripped
func (s *Service) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	u, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}
