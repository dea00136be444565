// Package notify provides NotificationSink implementations for best-effort
// stock-change events. Delivery is fire-and-forget: a sink never blocks or
// fails the stock mutation that triggered it.
package notify

import (
	"context"

	"github.com/rhowell/njord/internal/domain"
)

// NoopSink discards all events. Used when no broker is configured.
type NoopSink struct{}

// NewNoopSink creates a sink that drops every event.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// Publish implements domain.NotificationSink.
func (s *NoopSink) Publish(ctx context.Context, change domain.StockChange) {}

var _ domain.NotificationSink = (*NoopSink)(nil)
