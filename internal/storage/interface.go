package storage

import (
	"context"

	"github.com/mcoot/typerace/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// RecordUserRace atomically applies User.RecordRace and returns the updated user
	RecordUserRace(ctx context.Context, id model.UserID, wpm float64) (*model.User, error)

	// Passage operations
	SavePassage(ctx context.Context, passage *model.Passage) error
	GetPassage(ctx context.Context, id model.PassageID) (*model.Passage, error)
	// ListPassages returns passages newest first
	ListPassages(ctx context.Context, offset, limit int) ([]*model.Passage, error)
	// CountPassages counts passages in a universe; empty universe counts all
	CountPassages(ctx context.Context, universe string) (int, error)
	// NthPassage returns the n-th passage (0-based, stable order) in a universe; empty universe means all
	NthPassage(ctx context.Context, universe string, n int) (*model.Passage, error)

	// Race result operations
	SaveRaceResult(ctx context.Context, result *model.RaceResult) error
	// ListRaceResultsByUser returns a user's results newest first
	ListRaceResultsByUser(ctx context.Context, userID model.UserID) ([]*model.RaceResult, error)

	Close() error
}
