package mqtt

import (
	"fmt"
	"sync"

	coremetrics "github.com/kilianp07/bookscan/core/metrics"
)

// MockPublisher records progress events in memory.
type MockPublisher struct {
	Events   []coremetrics.GenerationEvent
	FailFrom int // fail every event with Generation >= FailFrom when positive
	mu       sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// RecordGeneration stores ev or returns an error if configured to fail.
func (m *MockPublisher) RecordGeneration(ev coremetrics.GenerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFrom > 0 && ev.Generation >= m.FailFrom {
		return fmt.Errorf("publish failed")
	}
	m.Events = append(m.Events, ev)
	return nil
}

// Received returns a copy of the recorded events.
func (m *MockPublisher) Received() []coremetrics.GenerationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremetrics.GenerationEvent(nil), m.Events...)
}
