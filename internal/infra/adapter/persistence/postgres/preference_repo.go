package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

type PreferenceRepo struct {
	db *sql.DB
}

func NewPreferenceRepo(db *sql.DB) repository.PreferenceRepository {
	return &PreferenceRepo{db: db}
}

const preferenceColumns = `
recipient_id, category, email_enabled, sms_enabled, whatsapp_enabled,
push_enabled, in_app_enabled, quiet_hours_enabled, quiet_hours_start,
quiet_hours_end, timezone`

// GetByRecipient loads the recipient's preference for a category. It falls
// back first to the recipient's default row (empty category) and finally to
// the opted-in-everywhere default, so dispatch never fails on a missing row.
func (repo *PreferenceRepo) GetByRecipient(ctx context.Context, recipientID, category string) (*entity.RecipientPreference, error) {
	const query = `
SELECT ` + preferenceColumns + `
FROM notification_preferences
WHERE recipient_id = $1 AND category IN ($2, '')
ORDER BY category DESC
LIMIT 1`

	pref, err := scanPreference(repo.db.QueryRowContext(ctx, query, recipientID, category))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DefaultPreference(recipientID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByRecipient: %w", err)
	}
	return pref, nil
}

func scanPreference(row scanner) (*entity.RecipientPreference, error) {
	var pref entity.RecipientPreference
	var start, end, tz sql.NullString

	if err := row.Scan(&pref.RecipientID, &pref.Category,
		&pref.EmailEnabled, &pref.SMSEnabled, &pref.WhatsAppEnabled,
		&pref.PushEnabled, &pref.InAppEnabled,
		&pref.QuietHoursEnabled, &start, &end, &tz); err != nil {
		return nil, err
	}

	pref.QuietHoursStart = start.String
	pref.QuietHoursEnd = end.String
	pref.Timezone = tz.String
	return &pref, nil
}
