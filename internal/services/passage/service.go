package passage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Paging limits for List
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ErrEmptyText is returned when a passage has no text
var ErrEmptyText = errors.New("passage text is required")

// Service manages the passage catalogue
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new passage Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "passage")),
	}
}

// Create stores a passage, applying the default source and universe
func (s *Service) Create(ctx context.Context, text, source, universe string) (*model.Passage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = model.DefaultPassageSource
	}
	universe = strings.TrimSpace(universe)
	if universe == "" {
		universe = model.DefaultPassageUniverse
	}

	p := &model.Passage{
		ID:        model.PassageID(uuid.NewString()),
		Text:      text,
		Source:    source,
		Universe:  universe,
		Length:    utf8.RuneCountInString(text),
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.SavePassage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a passage by id
func (s *Service) Get(ctx context.Context, id model.PassageID) (*model.Passage, error) {
	return s.storage.GetPassage(ctx, id)
}

// NormalizePage clamps paging parameters: page is at least 1, limit is in [1, MaxPageSize]
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	return page, min(limit, MaxPageSize)
}

// List returns one page of passages, newest first
func (s *Service) List(ctx context.Context, page, limit int) ([]*model.Passage, error) {
	page, limit = NormalizePage(page, limit)
	return s.storage.ListPassages(ctx, (page-1)*limit, limit)
}

// Random picks one passage uniformly, optionally restricted to a universe.
// Returns model.ErrPassageNotFound when nothing matches.
func (s *Service) Random(ctx context.Context, universe string) (*model.Passage, error) {
	count, err := s.storage.CountPassages(ctx, universe)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, model.ErrPassageNotFound
	}
	return s.storage.NthPassage(ctx, universe, s.random.Intn(count))
}

// SeedEntry is one passage in a seed file
type SeedEntry struct {
	Text     string `yaml:"text"`
	Source   string `yaml:"source"`
	Universe string `yaml:"universe"`
}

// SeedFile is the YAML layout of a seed file
type SeedFile struct {
	Passages []SeedEntry `yaml:"passages"`
}

// LoadSeedFile reads and parses a YAML seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// Seed loads passages from a YAML file when the catalogue is empty.
// Returns the number of passages inserted.
func (s *Service) Seed(ctx context.Context, path string) (int, error) {
	count, err := s.storage.CountPassages(ctx, "")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("passage catalogue not empty, skipping seed", slog.Int("count", count))
		return 0, nil
	}

	f, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, entry := range f.Passages {
		if _, err := s.Create(ctx, entry.Text, entry.Source, entry.Universe); err != nil {
			if errors.Is(err, ErrEmptyText) {
				continue
			}
			return inserted, err
		}
		inserted++
	}

	s.logger.Info("passages seeded", slog.String("path", path), slog.Int("inserted", inserted))
	return inserted, nil
}
