package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	passages      []*model.Passage // insertion order
	passageIndex  map[model.PassageID]*model.Passage
	results       []*model.RaceResult // insertion order
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		passageIndex:  make(map[model.PassageID]*model.Passage),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrUsernameExists
	}
	u := *user
	s.users[user.ID] = &u
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) RecordUserRace(ctx context.Context, id model.UserID, wpm float64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user.RecordRace(wpm)
	u := *user
	return &u, nil
}

// Passage operations

func (s *Storage) SavePassage(ctx context.Context, passage *model.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *passage
	if _, ok := s.passageIndex[p.ID]; ok {
		i := slices.IndexFunc(s.passages, func(existing *model.Passage) bool { return existing.ID == p.ID })
		s.passages[i] = &p
	} else {
		s.passages = append(s.passages, &p)
	}
	s.passageIndex[p.ID] = &p
	return nil
}

func (s *Storage) GetPassage(ctx context.Context, id model.PassageID) (*model.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	passage, ok := s.passageIndex[id]
	if !ok {
		return nil, model.ErrPassageNotFound
	}
	p := *passage
	return &p, nil
}

func (s *Storage) ListPassages(ctx context.Context, offset, limit int) ([]*model.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	passages := []*model.Passage{}
	for i := len(s.passages) - 1 - offset; i >= 0 && len(passages) < limit; i-- {
		p := *s.passages[i]
		passages = append(passages, &p)
	}
	return passages, nil
}

func (s *Storage) CountPassages(ctx context.Context, universe string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passagesIn(universe)), nil
}

func (s *Storage) NthPassage(ctx context.Context, universe string, n int) (*model.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matching := s.passagesIn(universe)
	if n < 0 || n >= len(matching) {
		return nil, model.ErrPassageNotFound
	}
	p := *matching[n]
	return &p, nil
}

// passagesIn must be called with the lock held
func (s *Storage) passagesIn(universe string) []*model.Passage {
	if universe == "" {
		return s.passages
	}
	var matching []*model.Passage
	for _, p := range s.passages {
		if p.Universe == universe {
			matching = append(matching, p)
		}
	}
	return matching
}

// Race result operations

func (s *Storage) SaveRaceResult(ctx context.Context, result *model.RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *result
	s.results = append(s.results, &r)
	return nil
}

func (s *Storage) ListRaceResultsByUser(ctx context.Context, userID model.UserID) ([]*model.RaceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := []*model.RaceResult{}
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].UserID == userID {
			r := *s.results[i]
			results = append(results, &r)
		}
	}
	return results, nil
}
