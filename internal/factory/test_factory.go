package factory

import (
	"context"
	"strconv"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/auth"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	MockPublisher *mocks.MockPublisher
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The hub is running; call Close when done.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockPublisher := &mocks.MockPublisher{}
	mockPublisher.On("PublishResultRecorded", mock.Anything, mock.Anything).Return(nil).Maybe()
	mockPublisher.On("PublishRoomFinished", mock.Anything, mock.Anything).Return(nil).Maybe()
	mockPublisher.On("Close").Return(nil).Maybe()

	app := newWithDependencies(store, mockPublisher, mockClock, mockRandom,
		auth.DefaultConfig(), room.DefaultConfig(), nil, testutil.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	app.stop = cancel
	go app.Hub.Run(ctx)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockPublisher: mockPublisher,
	}
}

// SeedPassages stores passages with fixed ids p1..pN, all in the general universe
func (t *TestApp) SeedPassages(ctx context.Context, texts ...string) error {
	for i, text := range texts {
		p := &model.Passage{
			ID:        model.PassageID("p" + strconv.Itoa(i+1)),
			Text:      text,
			Source:    "test",
			Universe:  model.DefaultPassageUniverse,
			Length:    len([]rune(text)),
			CreatedAt: t.MockClock.Now(),
		}
		if err := t.Storage.SavePassage(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
