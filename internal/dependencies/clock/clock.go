package clock

import (
	"github.com/jonboulle/clockwork"
)

// Clock provides time operations and timers that can be faked for testing
type Clock = clockwork.Clock

// Timer is a cancellable one-shot timer created by a Clock
type Timer = clockwork.Timer

// Ticker is a periodic ticker created by a Clock
type Ticker = clockwork.Ticker

// New creates a Clock backed by the system clock
func New() Clock {
	return clockwork.NewRealClock()
}
