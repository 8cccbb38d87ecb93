package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Record is one finished race to be saved
type Record struct {
	UserID     model.UserID
	PassageID  model.PassageID
	WPM        float64
	Accuracy   float64
	CharsTyped int
	DurationMs int64
}

// Validate checks the reported statistics are in range
func (r Record) Validate() error {
	switch {
	case r.WPM < 0:
		return fmt.Errorf("%w: wpm must be non-negative", model.ErrInvalidProgress)
	case r.Accuracy < 0 || r.Accuracy > 100:
		return fmt.Errorf("%w: accuracy must be between 0 and 100", model.ErrInvalidProgress)
	case r.CharsTyped < 0:
		return fmt.Errorf("%w: chars typed must be non-negative", model.ErrInvalidProgress)
	case r.DurationMs < 0:
		return fmt.Errorf("%w: duration must be non-negative", model.ErrInvalidProgress)
	}
	return nil
}

// ResultView is a stored result with its passage text resolved
type ResultView struct {
	*model.RaceResult
	PassageText string `json:"passage_text,omitempty"`
}

// Service saves race results and folds them into user stats
type Service struct {
	storage   storage.Storage
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// New creates a new results Service
func New(storage storage.Storage, publisher events.Publisher, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With(slog.String("component", "results")),
	}
}

// Record saves one race result, then updates the user's aggregate stats when a user is set.
// A user id that does not resolve keeps the result and skips the stats update.
func (s *Service) Record(ctx context.Context, rec Record) (*model.RaceResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	result := &model.RaceResult{
		ID:         model.RaceResultID(uuid.NewString()),
		UserID:     rec.UserID,
		PassageID:  rec.PassageID,
		WPM:        rec.WPM,
		Accuracy:   rec.Accuracy,
		CharsTyped: rec.CharsTyped,
		DurationMs: rec.DurationMs,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.storage.SaveRaceResult(ctx, result); err != nil {
		return nil, fmt.Errorf("%w: save result: %w", model.ErrPersistenceFailed, err)
	}

	if rec.UserID != "" {
		if _, err := s.storage.RecordUserRace(ctx, rec.UserID, rec.WPM); err != nil {
			if !errors.Is(err, model.ErrUserNotFound) {
				return result, fmt.Errorf("%w: update user stats: %w", model.ErrPersistenceFailed, err)
			}
			s.logger.Warn("result saved for unknown user, stats not updated",
				slog.String("user_id", string(rec.UserID)),
				slog.String("result_id", string(result.ID)))
		}
	}

	if err := s.publisher.PublishResultRecorded(ctx, result); err != nil {
		s.logger.Error("failed to publish result", slog.String("result_id", string(result.ID)), slog.Any("error", err))
	}

	return result, nil
}

// ListByUser returns a user's results newest first with passage text filled in
func (s *Service) ListByUser(ctx context.Context, userID model.UserID) ([]ResultView, error) {
	stored, err := s.storage.ListRaceResultsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	texts := make(map[model.PassageID]string)
	views := make([]ResultView, 0, len(stored))
	for _, r := range stored {
		view := ResultView{RaceResult: r}
		if r.PassageID != "" {
			text, ok := texts[r.PassageID]
			if !ok {
				if p, err := s.storage.GetPassage(ctx, r.PassageID); err == nil {
					text = p.Text
				} else if !errors.Is(err, model.ErrPassageNotFound) {
					return nil, err
				}
				texts[r.PassageID] = text
			}
			view.PassageText = text
		}
		views = append(views, view)
	}
	return views, nil
}
