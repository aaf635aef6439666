// Package repository defines the typed persistence interfaces the notification
// engine depends on. The read/write surface is deliberately a small fixed set
// of operations (by id, by retry-eligibility predicate, by dedup key) rather
// than free-form query assembly.
package repository

import (
	"context"
	"time"

	"adhera-notify/internal/domain/entity"
)

// FailedFilter narrows the operator-facing failed-notification listing.
// Nil fields are not applied.
type FailedFilter struct {
	Channel   *entity.Channel
	Type      *string
	Recipient *string
	From      *time.Time
	To        *time.Time
	// ExhaustedOnly restricts results to records that have used every retry.
	ExhaustedOnly bool
}

// NotificationRepository persists notification records and answers the two
// queries the engine's correctness depends on: retry eligibility and dedup.
type NotificationRepository interface {
	// Create inserts a new record. The record's ID, status and CreatedAt must
	// be set by the caller before insertion.
	Create(ctx context.Context, rec *entity.NotificationRecord) error

	// Get returns a record by id, or entity.ErrNotFound.
	Get(ctx context.Context, id string) (*entity.NotificationRecord, error)

	// GetByProviderMessageID resolves a provider correlation id to a record,
	// or entity.ErrNotFound. Used by delivery-receipt callbacks.
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*entity.NotificationRecord, error)

	// MarkSent transitions a record to sent and stores the provider message id.
	MarkSent(ctx context.Context, id, providerMessageID string) error

	// MarkFailed transitions a record to failed, records the error message and
	// the next retry time. A nil nextRetryAt marks the record exhausted.
	MarkFailed(ctx context.Context, id, errorMessage string, nextRetryAt *time.Time) error

	// MarkRetrying transitions a failed record to retrying, increments its
	// retry count, sets last_retry_at and clears next_retry_at. The update is
	// guarded: it only applies while status = failed and retry_count <
	// max_retries, and reports whether a row changed. This is the row-level
	// claim that keeps concurrent scans from double-retrying one record.
	MarkRetrying(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkSuppressed transitions a pending record to suppressed (quiet hours;
	// no provider call was made).
	MarkSuppressed(ctx context.Context, id string) error

	// AdvanceEngagement moves a record forward along the
	// sent -> delivered -> opened -> clicked ladder. Receipt callbacks repeat
	// and arrive out of order, so the update only applies when the new status
	// ranks strictly higher than the current one; a stale or duplicate receipt
	// is a silent no-op. Reports whether a row changed.
	AdvanceEngagement(ctx context.Context, id string, status entity.Status) (bool, error)

	// ListRetryEligible returns failed records with retry budget remaining
	// whose backoff has elapsed as of now, oldest first, capped at limit.
	// Exhausted records never appear.
	ListRetryEligible(ctx context.Context, now time.Time, backoff time.Duration, limit int) ([]*entity.NotificationRecord, error)

	// ExistsRecent reports whether a non-suppressed record for
	// (recipientID, notificationType) was created after cutoff. This is the
	// dedup guard consulted before creating a new record.
	ExistsRecent(ctx context.Context, recipientID, notificationType string, cutoff time.Time) (bool, error)

	// ListFailed returns failed records matching the filter for the operator
	// dashboard, newest first, with limit/offset paging.
	ListFailed(ctx context.Context, filter FailedFilter, limit, offset int) ([]*entity.NotificationRecord, error)

	// CountByStatus returns record counts grouped by status, for metrics.
	CountByStatus(ctx context.Context) (map[entity.Status]int64, error)
}
