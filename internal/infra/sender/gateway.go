package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayConfig contains configuration for the messaging gateway used by the
// SMS and WhatsApp channels.
type GatewayConfig struct {
	// Enabled indicates whether gateway delivery is configured
	Enabled bool

	// AccountID identifies the gateway account
	AccountID string

	// AuthToken is the gateway API token
	AuthToken string

	// BaseURL is the gateway API base URL
	BaseURL string

	// SMSFrom is the sending number for SMS
	SMSFrom string

	// WhatsAppFrom is the sending identity for WhatsApp
	WhatsAppFrom string

	// Timeout is the HTTP request timeout per attempt
	Timeout time.Duration
}

// gatewayClient holds the HTTP plumbing shared by the SMS and WhatsApp
// senders. Both channels hit the same gateway account, so they share one
// rate limit budget.
type gatewayClient struct {
	config      GatewayConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

func newGatewayClient(config GatewayConfig) *gatewayClient {
	return &gatewayClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(5.0, 10),
	}
}

// NewGatewaySenders creates the SMS and WhatsApp senders on one shared
// gateway client, so both channels draw from the same rate limit budget.
func NewGatewaySenders(config GatewayConfig) (*SMSSender, *WhatsAppSender) {
	client := newGatewayClient(config)
	return NewSMSSender(client), NewWhatsAppSender(client)
}

// gatewayPayload is the JSON body for both message endpoints.
type gatewayPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// gatewayResponse is the gateway's queued-message response.
type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// sendMessage posts one message to the given gateway endpoint and returns the
// gateway message id. Non-2xx responses come back as typed provider errors.
func (c *gatewayClient) sendMessage(ctx context.Context, endpoint, provider, from, to, body string) (string, error) {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(gatewayPayload{From: from, To: to, Body: body})
	if err != nil {
		return "", fmt.Errorf("marshal gateway payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/accounts/%s/%s", c.config.BaseURL, c.config.AccountID, endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.AuthToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(provider, resp.StatusCode, respBody, resp.Header)
	}

	var queued gatewayResponse
	if err := json.Unmarshal(respBody, &queued); err != nil || queued.MessageID == "" {
		return "", &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s gateway returned no message id", provider),
		}
	}
	return queued.MessageID, nil
}
