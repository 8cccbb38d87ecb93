package mocks

import (
	"sync"

	"github.com/mcoot/typerace/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Safe for use from bot goroutines.
type MockRandom struct {
	mu sync.Mutex

	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int

	// Float64Results is a queue of results to return from Float64
	Float64Results []float64
	float64Index   int
	// Float64Default is returned once Float64Results is exhausted
	Float64Default float64

	// StringResults is a queue of results to return from String
	StringResults []string
	stringIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// Float64 returns the next queued result, or Float64Default if none remaining
func (r *MockRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.float64Index >= len(r.Float64Results) {
		return r.Float64Default
	}
	result := r.Float64Results[r.float64Index]
	r.float64Index++
	return result
}

// String returns the next queued result, or empty string if none remaining
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stringIndex >= len(r.StringResults) {
		return ""
	}
	result := r.StringResults[r.stringIndex]
	r.stringIndex++
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueFloat64 adds values to the Float64 result queue
func (r *MockRandom) QueueFloat64(values ...float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Float64Results = append(r.Float64Results, values...)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults = append(r.StringResults, values...)
}

// SetFloat64Default sets the value returned once the Float64 queue is empty
func (r *MockRandom) SetFloat64Default(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Float64Default = v
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IntnResults = nil
	r.intnIndex = 0
	r.Float64Results = nil
	r.float64Index = 0
	r.StringResults = nil
	r.stringIndex = 0
}
