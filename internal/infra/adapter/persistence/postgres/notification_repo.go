// Package postgres implements the engine's repository interfaces against
// PostgreSQL using database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

const notificationColumns = `
id, recipient_id, channel, type, title, body, priority, status,
retry_count, max_retries, last_retry_at, next_retry_at,
error_message, provider_message_id, metadata, created_at`

type NotificationRepo struct {
	db           *sql.DB
	queryBuilder *FailedQueryBuilder
}

func NewNotificationRepo(db *sql.DB) repository.NotificationRepository {
	return &NotificationRepo{
		db:           db,
		queryBuilder: NewFailedQueryBuilder(),
	}
}

func (repo *NotificationRepo) Create(ctx context.Context, rec *entity.NotificationRecord) error {
	const query = `
INSERT INTO notifications (` + notificationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = repo.db.ExecContext(ctx, query,
		rec.ID, rec.RecipientID, string(rec.Channel), rec.Type, rec.Title, rec.Body,
		string(rec.Priority), string(rec.Status), rec.RetryCount, rec.MaxRetries,
		rec.LastRetryAt, rec.NextRetryAt, nullIfEmpty(rec.ErrorMessage),
		nullIfEmpty(rec.ProviderMessageID), metadata, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *NotificationRepo) Get(ctx context.Context, id string) (*entity.NotificationRecord, error) {
	const query = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE id = $1
LIMIT 1`

	rec, err := scanNotification(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

func (repo *NotificationRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*entity.NotificationRecord, error) {
	const query = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE provider_message_id = $1
ORDER BY created_at DESC
LIMIT 1`

	rec, err := scanNotification(repo.db.QueryRowContext(ctx, query, providerMessageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByProviderMessageID: %w", err)
	}
	return rec, nil
}

func (repo *NotificationRepo) MarkSent(ctx context.Context, id, providerMessageID string) error {
	const query = `
UPDATE notifications
SET status = 'sent', provider_message_id = $2, error_message = NULL, next_retry_at = NULL
WHERE id = $1 AND status IN ('pending', 'retrying')`

	res, err := repo.db.ExecContext(ctx, query, id, nullIfEmpty(providerMessageID))
	if err != nil {
		return fmt.Errorf("MarkSent: %w", err)
	}
	return requireRow(res, "MarkSent")
}

func (repo *NotificationRepo) MarkFailed(ctx context.Context, id, errorMessage string, nextRetryAt *time.Time) error {
	const query = `
UPDATE notifications
SET status = 'failed', error_message = $2, next_retry_at = $3
WHERE id = $1 AND status IN ('pending', 'retrying')`

	res, err := repo.db.ExecContext(ctx, query, id, errorMessage, nextRetryAt)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return requireRow(res, "MarkFailed")
}

func (repo *NotificationRepo) MarkRetrying(ctx context.Context, id string, now time.Time) (bool, error) {
	// Guarded claim: only one concurrent scan can flip a given failed record
	// to retrying, and a record at its retry ceiling can never be claimed.
	const query = `
UPDATE notifications
SET status = 'retrying', retry_count = retry_count + 1, last_retry_at = $2, next_retry_at = NULL
WHERE id = $1 AND status = 'failed' AND retry_count < max_retries`

	res, err := repo.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("MarkRetrying: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("MarkRetrying: %w", err)
	}
	return n == 1, nil
}

func (repo *NotificationRepo) MarkSuppressed(ctx context.Context, id string) error {
	const query = `
UPDATE notifications
SET status = 'suppressed'
WHERE id = $1 AND status = 'pending'`

	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("MarkSuppressed: %w", err)
	}
	return requireRow(res, "MarkSuppressed")
}

func (repo *NotificationRepo) AdvanceEngagement(ctx context.Context, id string, status entity.Status) (bool, error) {
	rank := status.EngagementRank()
	if rank <= 0 {
		return false, fmt.Errorf("AdvanceEngagement: %w: %q", entity.ErrInvalidTransition, status)
	}

	// Receipts repeat and arrive out of order; only strictly forward moves on
	// the engagement ladder are applied.
	const query = `
UPDATE notifications
SET status = $2
WHERE id = $1
  AND status IN ('sent', 'delivered', 'opened')
  AND CASE status
        WHEN 'sent' THEN 0
        WHEN 'delivered' THEN 1
        WHEN 'opened' THEN 2
      END < $3`

	res, err := repo.db.ExecContext(ctx, query, id, string(status), rank)
	if err != nil {
		return false, fmt.Errorf("AdvanceEngagement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("AdvanceEngagement: %w", err)
	}
	return n == 1, nil
}

func (repo *NotificationRepo) ListRetryEligible(ctx context.Context, now time.Time, backoff time.Duration, limit int) ([]*entity.NotificationRecord, error) {
	const query = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE status = 'failed'
  AND retry_count < max_retries
  AND (last_retry_at IS NULL OR last_retry_at < $1)
ORDER BY created_at ASC
LIMIT $2`

	rows, err := repo.db.QueryContext(ctx, query, now.Add(-backoff), limit)
	if err != nil {
		return nil, fmt.Errorf("ListRetryEligible: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.NotificationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRetryEligible: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (repo *NotificationRepo) ExistsRecent(ctx context.Context, recipientID, notificationType string, cutoff time.Time) (bool, error) {
	// Suppressed records don't count against the dedup window: no message
	// reached the patient, so the producer may try again outside quiet hours.
	const query = `
SELECT EXISTS (
    SELECT 1 FROM notifications
    WHERE recipient_id = $1 AND type = $2 AND created_at > $3
      AND status <> 'suppressed'
)`

	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, recipientID, notificationType, cutoff).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsRecent: %w", err)
	}
	return exists, nil
}

func (repo *NotificationRepo) ListFailed(ctx context.Context, filter repository.FailedFilter, limit, offset int) ([]*entity.NotificationRecord, error) {
	query, args := repo.queryBuilder.Build(filter, limit, offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListFailed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.NotificationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ListFailed: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (repo *NotificationRepo) CountByStatus(ctx context.Context) (map[entity.Status]int64, error) {
	const query = `SELECT status, COUNT(*) FROM notifications GROUP BY status`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("CountByStatus: Scan: %w", err)
		}
		counts[entity.Status(status)] = count
	}
	return counts, rows.Err()
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*entity.NotificationRecord, error) {
	var rec entity.NotificationRecord
	var channel, priority, status string
	var body, errorMessage, providerMessageID sql.NullString
	var metadata []byte

	if err := row.Scan(&rec.ID, &rec.RecipientID, &channel, &rec.Type, &rec.Title, &body,
		&priority, &status, &rec.RetryCount, &rec.MaxRetries,
		&rec.LastRetryAt, &rec.NextRetryAt, &errorMessage, &providerMessageID,
		&metadata, &rec.CreatedAt); err != nil {
		return nil, err
	}

	rec.Channel = entity.Channel(channel)
	rec.Priority = entity.Priority(priority)
	rec.Status = entity.Status(status)
	rec.Body = body.String
	rec.ErrorMessage = errorMessage.String
	rec.ProviderMessageID = providerMessageID.String

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-row update into ErrNotFound. Guarded updates
// legitimately miss when the record moved on; callers decide severity.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}
	return nil
}
