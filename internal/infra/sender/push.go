package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/resilience/circuitbreaker"
)

// PushConfig contains configuration for web push delivery.
type PushConfig struct {
	// Enabled indicates whether push delivery is configured
	Enabled bool

	// AuthToken authenticates against the push relay
	AuthToken string

	// TTL is how long the push service should hold an undelivered message
	TTL time.Duration

	// Timeout is the HTTP request timeout per subscription attempt
	Timeout time.Duration
}

// PushSender delivers notifications to a recipient's registered web push
// subscriptions. A recipient may hold several subscriptions (one per browser
// or device); delivery succeeds when at least one endpoint accepts.
//
// Endpoints that come back 404 or 410 are reported as stale so the caller
// can deactivate them.
type PushSender struct {
	config      PushConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewPushSender creates a PushSender.
func NewPushSender(config PushConfig) *PushSender {
	return &PushSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(20.0, 50),
		breaker:     circuitbreaker.New(circuitbreaker.ProviderConfig("push")),
	}
}

// Name implements the Sender interface.
func (s *PushSender) Name() entity.Channel { return entity.ChannelPush }

// Enabled implements the Sender interface.
func (s *PushSender) Enabled() bool {
	return s.config.Enabled && s.config.AuthToken != ""
}

// pushPayload is the JSON body posted to each subscription endpoint.
type pushPayload struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// Send fans one notification out to the recipient's active subscriptions.
// This method implements the Sender interface.
func (s *PushSender) Send(ctx context.Context, req *DeliveryRequest) Outcome {
	subs := req.Recipient.ActivePushSubscriptions()
	if len(subs) == 0 {
		return Reject("recipient has no active push subscriptions")
	}

	var (
		stale    []string
		accepted int
		lastErr  error
	)

	for _, sub := range subs {
		if err := s.rateLimiter.Allow(ctx); err != nil {
			lastErr = fmt.Errorf("rate limiter: %w", err)
			break
		}

		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.pushToEndpoint(ctx, sub.Endpoint, req.Record)
		})
		if err == nil {
			accepted++
			continue
		}
		if isGone(err) {
			slog.Info("push subscription gone",
				slog.String("notification_id", req.Record.ID),
				slog.String("subscription_id", sub.ID))
			stale = append(stale, sub.ID)
			continue
		}
		lastErr = err
	}

	switch {
	case accepted > 0:
		// Web push has no provider-side correlation id; synthesize one so
		// the record still carries a unique reference.
		out := Accept("push-" + uuid.New().String())
		out.StaleSubscriptionIDs = stale
		slog.Info("push accepted",
			slog.String("notification_id", req.Record.ID),
			slog.Int("endpoints", accepted),
			slog.Int("stale", len(stale)))
		return out
	case lastErr != nil:
		slog.Warn("push delivery attempt failed",
			slog.String("notification_id", req.Record.ID),
			slog.Any("error", lastErr))
		out := outcomeFromError(lastErr)
		out.StaleSubscriptionIDs = stale
		return out
	default:
		out := Reject("all push subscriptions gone")
		out.StaleSubscriptionIDs = stale
		return out
	}
}

// pushToEndpoint posts the payload to a single subscription endpoint.
func (s *PushSender) pushToEndpoint(ctx context.Context, endpoint string, record *entity.NotificationRecord) error {
	jsonData, err := json.Marshal(pushPayload{
		NotificationID: record.ID,
		Type:           record.Type,
		Title:          record.Title,
		Body:           record.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	httpReq.Header.Set("TTL", fmt.Sprintf("%d", int(s.config.TTL.Seconds())))
	if record.Priority == entity.PriorityUrgent {
		httpReq.Header.Set("Urgency", "high")
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus("push", resp.StatusCode, body, resp.Header)
	}
	return nil
}

// isGone reports whether the error is a 404/410 from the push service,
// meaning the subscription no longer exists.
func isGone(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.StatusCode == http.StatusNotFound || clientErr.StatusCode == http.StatusGone
}
