package sender

import (
	"context"
	"fmt"
	"log/slog"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/resilience/circuitbreaker"
)

// WhatsAppSender delivers notifications through the messaging gateway's
// WhatsApp endpoint. Recipients without a dedicated WhatsApp number fall
// back to their SMS phone number.
type WhatsAppSender struct {
	client  *gatewayClient
	breaker *circuitbreaker.CircuitBreaker
}

// NewWhatsAppSender creates a WhatsAppSender sharing the given gateway client.
func NewWhatsAppSender(client *gatewayClient) *WhatsAppSender {
	return &WhatsAppSender{
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.ProviderConfig("whatsapp")),
	}
}

// Name implements the Sender interface.
func (s *WhatsAppSender) Name() entity.Channel { return entity.ChannelWhatsApp }

// Enabled implements the Sender interface.
func (s *WhatsAppSender) Enabled() bool {
	cfg := s.client.config
	return cfg.Enabled && cfg.AuthToken != "" && cfg.WhatsAppFrom != ""
}

// Send delivers one WhatsApp message. This method implements the Sender interface.
func (s *WhatsAppSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	to := req.Recipient.AddressFor(entity.ChannelWhatsApp)
	if to == "" {
		return Reject("recipient has no WhatsApp or phone number")
	}

	body := fmt.Sprintf("*%s*\n%s", req.Record.Title, req.Record.Body)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.sendMessage(ctx, "whatsapp", "whatsapp", s.client.config.WhatsAppFrom, to, body)
	})
	if err != nil {
		slog.Warn("whatsapp delivery attempt failed",
			slog.String("notification_id", req.Record.ID),
			slog.Any("error", err))
		return outcomeFromError(err)
	}

	messageID := result.(string)
	slog.Info("whatsapp accepted by gateway",
		slog.String("notification_id", req.Record.ID),
		slog.String("provider_message_id", messageID))
	return Accept(messageID)
}
