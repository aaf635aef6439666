package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/resilience/circuitbreaker"
)

// EmailConfig contains configuration for the transactional email provider.
type EmailConfig struct {
	// Enabled indicates whether email delivery is configured
	Enabled bool

	// APIKey is the provider API key (bearer token)
	APIKey string

	// BaseURL is the provider API base URL
	BaseURL string

	// FromAddress is the verified sender address
	FromAddress string

	// FromName is the display name shown to recipients
	FromName string

	// Timeout is the HTTP request timeout per attempt
	Timeout time.Duration
}

// EmailSender delivers notifications through a transactional email HTTP API.
type EmailSender struct {
	config      EmailConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewEmailSender creates an EmailSender.
//
// The sender is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 10 requests/second with burst of 20
//   - Circuit breaker with provider defaults
func NewEmailSender(config EmailConfig) *EmailSender {
	return &EmailSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(10.0, 20),
		breaker:     circuitbreaker.New(circuitbreaker.ProviderConfig("email")),
	}
}

// Name implements the Sender interface.
func (s *EmailSender) Name() entity.Channel { return entity.ChannelEmail }

// Enabled implements the Sender interface.
func (s *EmailSender) Enabled() bool {
	return s.config.Enabled && s.config.APIKey != "" && s.config.FromAddress != ""
}

// emailPayload is the JSON body sent to the provider's message endpoint.
type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// emailResponse is the provider's accepted-message response.
type emailResponse struct {
	ID string `json:"id"`
}

// Send delivers one email. This method implements the Sender interface.
func (s *EmailSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	address := req.Recipient.AddressFor(entity.ChannelEmail)
	if address == "" {
		return Reject("recipient has no email address")
	}

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return Transient(fmt.Sprintf("rate limiter: %v", err))
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.sendRequest(ctx, address, req.Record)
	})
	if err != nil {
		slog.Warn("email delivery attempt failed",
			slog.String("notification_id", req.Record.ID),
			slog.Any("error", err))
		return outcomeFromError(err)
	}

	messageID := result.(string)
	slog.Info("email accepted by provider",
		slog.String("notification_id", req.Record.ID),
		slog.String("provider_message_id", messageID))
	return Accept(messageID)
}

// sendRequest performs the HTTP call and returns the provider message id.
func (s *EmailSender) sendRequest(ctx context.Context, address string, record *entity.NotificationRecord) (string, error) {
	payload := emailPayload{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{address},
		Subject: record.Title,
		Text:    record.Body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal email payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus("email", resp.StatusCode, body, resp.Header)
	}

	var accepted emailResponse
	if err := json.Unmarshal(body, &accepted); err != nil || accepted.ID == "" {
		return "", &ServerError{
			StatusCode: resp.StatusCode,
			Message:    "email provider returned no message id",
		}
	}
	return accepted.ID, nil
}
