// Package receipt applies provider delivery receipts to notification records.
//
// Providers call back (webhooks, tracking pixels) with a correlation id and an
// engagement event. Callbacks repeat and arrive out of order, so application
// is idempotent: a duplicate or regressing event is a silent no-op.
package receipt

import (
	"context"
	"fmt"
	"log/slog"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

// Event is a provider engagement callback type.
type Event string

const (
	EventDelivered Event = "delivered"
	EventOpened    Event = "opened"
	EventClicked   Event = "clicked"
)

// Valid reports whether the event is one the engine understands.
func (e Event) Valid() bool {
	switch e {
	case EventDelivered, EventOpened, EventClicked:
		return true
	}
	return false
}

// Status returns the record status this event advances to.
func (e Event) Status() entity.Status {
	switch e {
	case EventDelivered:
		return entity.StatusDelivered
	case EventOpened:
		return entity.StatusOpened
	case EventClicked:
		return entity.StatusClicked
	}
	return ""
}

// Service applies delivery receipts.
type Service interface {
	// Apply advances the record matching the provider correlation id along
	// the engagement ladder. It reports whether the record changed; a stale
	// or duplicate receipt returns (false, nil). Unknown correlation ids
	// return entity.ErrNotFound, unknown events entity.ErrInvalidInput.
	Apply(ctx context.Context, providerMessageID string, event Event) (bool, error)
}

type service struct {
	notifications repository.NotificationRepository
}

// NewService creates a receipt service.
func NewService(notifications repository.NotificationRepository) Service {
	return &service{notifications: notifications}
}

// Apply implements Service.Apply.
func (s *service) Apply(ctx context.Context, providerMessageID string, event Event) (bool, error) {
	if !event.Valid() {
		return false, fmt.Errorf("%w: unknown receipt event %q", entity.ErrInvalidInput, event)
	}
	if providerMessageID == "" {
		return false, fmt.Errorf("%w: empty provider message id", entity.ErrInvalidInput)
	}

	rec, err := s.notifications.GetByProviderMessageID(ctx, providerMessageID)
	if err != nil {
		return false, fmt.Errorf("resolve receipt %s: %w", providerMessageID, err)
	}

	applied, err := s.notifications.AdvanceEngagement(ctx, rec.ID, event.Status())
	if err != nil {
		return false, fmt.Errorf("advance engagement: %w", err)
	}

	if applied {
		slog.Info("delivery receipt applied",
			slog.String("notification_id", rec.ID),
			slog.String("event", string(event)))
	} else {
		slog.Debug("delivery receipt ignored (stale or duplicate)",
			slog.String("notification_id", rec.ID),
			slog.String("event", string(event)),
			slog.String("current_status", string(rec.Status)))
	}
	RecordReceipt(string(event), applied)
	return applied, nil
}
