package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

type RecipientRepo struct {
	db *sql.DB
}

func NewRecipientRepo(db *sql.DB) repository.RecipientRepository {
	return &RecipientRepo{db: db}
}

func (repo *RecipientRepo) Get(ctx context.Context, id string) (*entity.Recipient, error) {
	const query = `
SELECT id, email, phone, whatsapp_phone
FROM recipients
WHERE id = $1
LIMIT 1`

	var rec entity.Recipient
	var email, phone, whatsapp sql.NullString
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&rec.ID, &email, &phone, &whatsapp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	rec.Email = email.String
	rec.Phone = phone.String
	rec.WhatsAppPhone = whatsapp.String

	subs, err := repo.listPushSubscriptions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	rec.PushSubscriptions = subs
	return &rec, nil
}

func (repo *RecipientRepo) listPushSubscriptions(ctx context.Context, recipientID string) ([]entity.PushSubscription, error) {
	const query = `
SELECT id, endpoint, active, created_at
FROM push_subscriptions
WHERE recipient_id = $1 AND active = TRUE
ORDER BY created_at ASC`

	rows, err := repo.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("listPushSubscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []entity.PushSubscription
	for rows.Next() {
		var sub entity.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("listPushSubscriptions: Scan: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (repo *RecipientRepo) DeactivatePushSubscription(ctx context.Context, subscriptionID string) error {
	const query = `
UPDATE push_subscriptions
SET active = FALSE
WHERE id = $1`

	if _, err := repo.db.ExecContext(ctx, query, subscriptionID); err != nil {
		return fmt.Errorf("DeactivatePushSubscription: %w", err)
	}
	return nil
}
