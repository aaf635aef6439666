package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/handler/http/requestid"
	"adhera-notify/internal/handler/http/respond"
	"adhera-notify/internal/observability/metrics"
	"adhera-notify/internal/usecase/receipt"
)

// webhookSecretHeader carries the per-provider shared secret on receipt
// callbacks.
const webhookSecretHeader = "X-Webhook-Secret"

// knownProviders are the channels whose providers post delivery receipts.
// in_app records advance through application reads, not webhooks.
var knownProviders = map[string]bool{
	"email":    true,
	"sms":      true,
	"whatsapp": true,
	"push":     true,
}

// receiptRequest is one provider delivery receipt callback.
type receiptRequest struct {
	MessageID string `json:"message_id"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp,omitempty"`
}

// receiptResponse acknowledges a receipt callback.
type receiptResponse struct {
	Applied bool `json:"applied"`
}

// SecretResolver resolves a provider's webhook shared secret.
// An empty result means the provider has no webhook configured.
type SecretResolver interface {
	WebhookSecret(provider string) string
}

// ReceiptHandler ingests provider delivery receipts.
//
// Route: POST /webhooks/receipts/{provider}
//
// Receipt semantics:
//   - Authentication is a constant-time shared-secret comparison per provider.
//   - Replays and out-of-order events are expected; application is idempotent
//     downstream, so duplicates are acknowledged with 200 and applied=false.
//   - Unknown message ids also get 200: the record may have been purged, and
//     a non-2xx answer would make the provider retry forever.
type ReceiptHandler struct {
	Receipts receipt.Service
	Secrets  SecretResolver
	Logger   *slog.Logger
}

func (h *ReceiptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.SafeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	provider := strings.TrimPrefix(r.URL.Path, "/webhooks/receipts/")
	if provider == "" || strings.Contains(provider, "/") || !knownProviders[provider] {
		respond.SafeError(w, http.StatusNotFound, errors.New("unknown provider"))
		return
	}

	logger := h.Logger.With(
		slog.String("request_id", requestid.FromContext(r.Context())),
		slog.String("provider", provider))

	if !h.authenticate(provider, r) {
		logger.Warn("receipt webhook rejected", slog.String("reason", "bad_secret"))
		metrics.RecordWebhookReceipt(provider, "rejected")
		respond.SafeError(w, http.StatusUnauthorized, errors.New("invalid webhook secret"))
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordWebhookReceipt(provider, "rejected")
		respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid receipt payload: %w", err))
		return
	}

	applied, err := h.Receipts.Apply(r.Context(), req.MessageID, receipt.Event(req.Event))
	switch {
	case err == nil:
		result := "ignored"
		if applied {
			result = "applied"
		}
		metrics.RecordWebhookReceipt(provider, result)
		respond.JSON(w, http.StatusOK, receiptResponse{Applied: applied})

	case errors.Is(err, entity.ErrNotFound):
		// Acknowledge so the provider stops retrying a receipt we can
		// never apply.
		logger.Info("receipt for unknown message",
			slog.String("message_id", req.MessageID),
			slog.String("event", req.Event))
		metrics.RecordWebhookReceipt(provider, "ignored")
		respond.JSON(w, http.StatusOK, receiptResponse{Applied: false})

	case errors.Is(err, entity.ErrInvalidInput):
		metrics.RecordWebhookReceipt(provider, "rejected")
		respond.SafeError(w, http.StatusBadRequest, err)

	default:
		logger.Error("receipt application failed",
			slog.String("message_id", req.MessageID),
			slog.String("error", respond.SanitizeError(err)))
		metrics.RecordWebhookReceipt(provider, "rejected")
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

// authenticate compares the shared secret in constant time. A provider with
// no configured secret is closed off rather than open.
func (h *ReceiptHandler) authenticate(provider string, r *http.Request) bool {
	want := h.Secrets.WebhookSecret(provider)
	if want == "" {
		return false
	}
	got := r.Header.Get(webhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
