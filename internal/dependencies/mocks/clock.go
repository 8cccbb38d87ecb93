package mocks

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/typerace/internal/dependencies/clock"
)

// MockClock is a fake clock whose timers and tickers fire only when advanced
type MockClock = clockwork.FakeClock

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return clockwork.NewFakeClockAt(t)
}
