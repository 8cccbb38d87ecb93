package events

import (
	"context"

	"github.com/mcoot/typerace/internal/model"
)

// Subjects race events are published on
const (
	SubjectResultRecorded = "typerace.results.recorded"
	SubjectRoomFinished   = "typerace.rooms.finished"
)

// Publisher announces race outcomes to downstream consumers
type Publisher interface {
	PublishResultRecorded(ctx context.Context, result *model.RaceResult) error
	PublishRoomFinished(ctx context.Context, finished *model.RoomFinished) error
	Close() error
}

// NopPublisher discards every event
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// PublishResultRecorded does nothing
func (NopPublisher) PublishResultRecorded(context.Context, *model.RaceResult) error {
	return nil
}

// PublishRoomFinished does nothing
func (NopPublisher) PublishRoomFinished(context.Context, *model.RoomFinished) error {
	return nil
}

// Close does nothing
func (NopPublisher) Close() error {
	return nil
}
