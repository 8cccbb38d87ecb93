package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// MockStorage is a testify mock of storage.Storage for failure paths
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockStorage) RecordUserRace(ctx context.Context, id model.UserID, wpm float64) (*model.User, error) {
	args := m.Called(ctx, id, wpm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockStorage) SavePassage(ctx context.Context, passage *model.Passage) error {
	args := m.Called(ctx, passage)
	return args.Error(0)
}

func (m *MockStorage) GetPassage(ctx context.Context, id model.PassageID) (*model.Passage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Passage), args.Error(1)
}

func (m *MockStorage) ListPassages(ctx context.Context, offset, limit int) ([]*model.Passage, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Passage), args.Error(1)
}

func (m *MockStorage) CountPassages(ctx context.Context, universe string) (int, error) {
	args := m.Called(ctx, universe)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) NthPassage(ctx context.Context, universe string, n int) (*model.Passage, error) {
	args := m.Called(ctx, universe, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Passage), args.Error(1)
}

func (m *MockStorage) SaveRaceResult(ctx context.Context, result *model.RaceResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockStorage) ListRaceResultsByUser(ctx context.Context, userID model.UserID) ([]*model.RaceResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RaceResult), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher is a testify mock of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishResultRecorded(ctx context.Context, result *model.RaceResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockPublisher) PublishRoomFinished(ctx context.Context, finished *model.RoomFinished) error {
	args := m.Called(ctx, finished)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
