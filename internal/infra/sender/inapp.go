package sender

import (
	"context"

	"github.com/google/uuid"

	"adhera-notify/internal/domain/entity"
)

// InAppSender handles the in_app channel. The notification record itself is
// the inbox entry the client application reads, so there is no provider call;
// accepting the attempt is enough to surface the message.
type InAppSender struct{}

// NewInAppSender creates an InAppSender.
func NewInAppSender() *InAppSender {
	return &InAppSender{}
}

// Name implements the Sender interface.
func (s *InAppSender) Name() entity.Channel { return entity.ChannelInApp }

// Enabled implements the Sender interface. In-app delivery needs no
// provider credentials and is always available.
func (s *InAppSender) Enabled() bool { return true }

// Send implements the Sender interface. It synthesizes a correlation id so
// read receipts from the client application can reference the delivery.
func (s *InAppSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	if err := ctx.Err(); err != nil {
		return Transient(err.Error())
	}
	return Accept("inapp-" + uuid.New().String())
}
