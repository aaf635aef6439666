package sender

import (
	"context"

	"adhera-notify/internal/domain/entity"
)

// NoOpSender is a no-operation implementation of the Sender interface.
// It accepts every delivery without contacting any provider and is used in
// tests and for channels running in dry-run mode.
type NoOpSender struct {
	channel entity.Channel
}

// NewNoOpSender creates a NoOpSender for the given channel.
func NewNoOpSender(channel entity.Channel) *NoOpSender {
	return &NoOpSender{channel: channel}
}

// Name implements the Sender interface.
func (s *NoOpSender) Name() entity.Channel { return s.channel }

// Enabled implements the Sender interface.
func (s *NoOpSender) Enabled() bool { return true }

// Send implements the Sender interface. It does nothing and reports the
// attempt as accepted.
func (s *NoOpSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	return Accept("noop-" + string(s.channel) + "-" + req.Record.ID)
}
