package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/rhowell/njord/internal/domain"
)

// NatsSink publishes stock-change events to a NATS subject.
// Events are published at most once per call with no acknowledgement;
// publish failures are logged and swallowed.
type NatsSink struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *slog.Logger
}

// NewNatsSink connects to the given NATS URL. Subjects are
// "<prefix>.stock.changed".
func NewNatsSink(url, subjectPrefix string, logger *slog.Logger) (*NatsSink, error) {
	conn, err := nats.Connect(url, nats.Name("njord-stock-events"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsSink{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}, nil
}

// Publish implements domain.NotificationSink.
func (s *NatsSink) Publish(ctx context.Context, change domain.StockChange) {
	payload, err := json.Marshal(change)
	if err != nil {
		s.logger.Warn("failed to encode stock change event",
			slog.Int64("item_id", change.ItemID),
			slog.String("error", err.Error()))
		return
	}

	subject := fmt.Sprintf("%s.stock.changed", s.subjectPrefix)
	if err := s.conn.Publish(subject, payload); err != nil {
		s.logger.Warn("failed to publish stock change event",
			slog.String("subject", subject),
			slog.Int64("item_id", change.ItemID),
			slog.String("error", err.Error()))
	}
}

// Close drains the connection.
func (s *NatsSink) Close() {
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("failed to drain NATS connection", slog.String("error", err.Error()))
	}
}

var _ domain.NotificationSink = (*NatsSink)(nil)
