package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/handler/http/pathutil"
	"adhera-notify/internal/handler/http/requestid"
	"adhera-notify/internal/handler/http/respond"
	"adhera-notify/internal/repository"
	"adhera-notify/internal/usecase/dispatch"
	"adhera-notify/internal/usecase/retryer"
)

const (
	defaultFailedLimit = 50
	maxFailedLimit     = 500
)

// notificationView is the operator-facing projection of a record.
// Title and body stay internal; the dashboard works with delivery state.
type notificationView struct {
	ID                string     `json:"id"`
	RecipientID       string     `json:"recipient_id"`
	Channel           string     `json:"channel"`
	Type              string     `json:"type"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	RetryCount        int        `json:"retry_count"`
	MaxRetries        int        `json:"max_retries"`
	Exhausted         bool       `json:"exhausted"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	LastRetryAt       *time.Time `json:"last_retry_at,omitempty"`
	NextRetryAt       *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toView(rec *entity.NotificationRecord) notificationView {
	return notificationView{
		ID:                rec.ID,
		RecipientID:       rec.RecipientID,
		Channel:           string(rec.Channel),
		Type:              rec.Type,
		Priority:          string(rec.Priority),
		Status:            string(rec.Status),
		RetryCount:        rec.RetryCount,
		MaxRetries:        rec.MaxRetries,
		Exhausted:         rec.IsExhausted(),
		ErrorMessage:      rec.ErrorMessage,
		ProviderMessageID: rec.ProviderMessageID,
		LastRetryAt:       rec.LastRetryAt,
		NextRetryAt:       rec.NextRetryAt,
		CreatedAt:         rec.CreatedAt,
	}
}

// failedListResponse pages through failed records.
type failedListResponse struct {
	Notifications []notificationView `json:"notifications"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}

// AdminHandler serves the operator endpoints:
//
//	GET  /admin/notifications/failed       - list failed records with filters
//	POST /admin/notifications/{id}/retry   - force an immediate retry
type AdminHandler struct {
	Notifications repository.NotificationRepository
	Retryer       retryer.Service
	Logger        *slog.Logger
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/admin/notifications/failed" && r.Method == http.MethodGet:
		h.listFailed(w, r)
	case strings.HasSuffix(path, "/retry") && r.Method == http.MethodPost:
		h.retry(w, r)
	default:
		respond.SafeError(w, http.StatusNotFound, errors.New("not found"))
	}
}

// listFailed lists failed notification records, newest first.
//
// Query parameters:
//   - channel:   filter by delivery channel
//   - type:      filter by notification type
//   - recipient: filter by recipient id
//   - from, to:  RFC 3339 bounds on created_at
//   - exhausted: "true" restricts to records with no retry budget left
//   - limit, offset: paging (limit defaults to 50, capped at 500)
func (h *AdminHandler) listFailed(w http.ResponseWriter, r *http.Request) {
	filter, limit, offset, err := parseFailedQuery(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := h.Notifications.ListFailed(r.Context(), filter, limit, offset)
	if err != nil {
		h.Logger.Error("failed notification listing errored",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.String("error", respond.SanitizeError(err)))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]notificationView, 0, len(records))
	for _, rec := range records {
		views = append(views, toView(rec))
	}

	respond.JSON(w, http.StatusOK, failedListResponse{
		Notifications: views,
		Limit:         limit,
		Offset:        offset,
	})
}

// retry forces an immediate redelivery attempt for one failed record.
// The attempt consumes one unit of the record's retry budget and runs through
// the same dispatch path as scheduled retries.
func (h *AdminHandler) retry(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/admin/notifications/", "/retry")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid notification id"))
		return
	}

	logger := h.Logger.With(
		slog.String("request_id", requestid.FromContext(r.Context())),
		slog.String("notification_id", id))

	result, err := h.Retryer.RetrySingle(r.Context(), id)
	switch {
	case err == nil:
		logger.Info("manual retry completed", slog.String("result", string(result.Kind)))
		view := notificationView{}
		if result.Record != nil {
			view = toView(result.Record)
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"result":       string(result.Kind),
			"notification": view,
		})

	case errors.Is(err, entity.ErrNotFound):
		respond.SafeError(w, http.StatusNotFound, fmt.Errorf("notification not found"))

	case errors.Is(err, retryer.ErrNotEligible):
		respond.SafeError(w, http.StatusConflict, fmt.Errorf("notification cannot be retried"))

	case errors.Is(err, dispatch.ErrChannelNotConfigured):
		respond.SafeError(w, http.StatusConflict, err)

	default:
		logger.Error("manual retry errored", slog.String("error", respond.SanitizeError(err)))
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

func parseFailedQuery(r *http.Request) (repository.FailedFilter, int, int, error) {
	q := r.URL.Query()
	var filter repository.FailedFilter

	if v := q.Get("channel"); v != "" {
		ch := entity.Channel(v)
		if !ch.Valid() {
			return filter, 0, 0, fmt.Errorf("invalid channel %q", v)
		}
		filter.Channel = &ch
	}
	if v := q.Get("type"); v != "" {
		filter.Type = &v
	}
	if v := q.Get("recipient"); v != "" {
		filter.Recipient = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("invalid from timestamp: %w", err)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("invalid to timestamp: %w", err)
		}
		filter.To = &t
	}
	filter.ExhaustedOnly = q.Get("exhausted") == "true"

	limit := defaultFailedLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		if n > maxFailedLimit {
			n = maxFailedLimit
		}
		limit = n
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		offset = n
	}

	return filter, limit, offset, nil
}
