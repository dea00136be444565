package notify

import (
	"context"
	"sync"

	"github.com/rhowell/njord/internal/domain"
)

// MockSink records published events for test assertions. Safe for
// concurrent use.
type MockSink struct {
	mu     sync.Mutex
	events []domain.StockChange
}

// NewMockSink creates an empty recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Publish implements domain.NotificationSink.
func (s *MockSink) Publish(ctx context.Context, change domain.StockChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, change)
}

// Events returns a copy of all recorded events in publish order.
func (s *MockSink) Events() []domain.StockChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockChange, len(s.events))
	copy(out, s.events)
	return out
}

// LastForItem returns the most recent event for an item, or false.
func (s *MockSink) LastForItem(itemID int64) (domain.StockChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ItemID == itemID {
			return s.events[i], true
		}
	}
	return domain.StockChange{}, false
}

// Reset clears recorded events.
func (s *MockSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

var _ domain.NotificationSink = (*MockSink)(nil)
