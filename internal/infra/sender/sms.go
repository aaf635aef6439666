package sender

import (
	"context"
	"fmt"
	"log/slog"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/resilience/circuitbreaker"
)

// SMSSender delivers notifications as text messages through the messaging
// gateway. SMS has no separate subject line, so title and body are joined.
type SMSSender struct {
	client  *gatewayClient
	breaker *circuitbreaker.CircuitBreaker
}

// NewSMSSender creates an SMSSender sharing the given gateway client.
func NewSMSSender(client *gatewayClient) *SMSSender {
	return &SMSSender{
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.ProviderConfig("sms")),
	}
}

// NewSMSSenderFromConfig creates an SMSSender with its own gateway client.
func NewSMSSenderFromConfig(config GatewayConfig) *SMSSender {
	return NewSMSSender(newGatewayClient(config))
}

// Name implements the Sender interface.
func (s *SMSSender) Name() entity.Channel { return entity.ChannelSMS }

// Enabled implements the Sender interface.
func (s *SMSSender) Enabled() bool {
	cfg := s.client.config
	return cfg.Enabled && cfg.AuthToken != "" && cfg.SMSFrom != ""
}

// Send delivers one SMS. This method implements the Sender interface.
func (s *SMSSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	to := req.Recipient.AddressFor(entity.ChannelSMS)
	if to == "" {
		return Reject("recipient has no phone number")
	}

	body := fmt.Sprintf("%s\n%s", req.Record.Title, req.Record.Body)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.sendMessage(ctx, "sms", "sms", s.client.config.SMSFrom, to, body)
	})
	if err != nil {
		slog.Warn("sms delivery attempt failed",
			slog.String("notification_id", req.Record.ID),
			slog.Any("error", err))
		return outcomeFromError(err)
	}

	messageID := result.(string)
	slog.Info("sms accepted by gateway",
		slog.String("notification_id", req.Record.ID),
		slog.String("provider_message_id", messageID))
	return Accept(messageID)
}
