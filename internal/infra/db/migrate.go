package db

import (
	"database/sql"
)

// MigrateUp creates the notification engine's tables and indexes. All
// statements are idempotent so repeated startup runs are safe.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS recipients (
    id             UUID PRIMARY KEY,
    email          TEXT,
    phone          TEXT,
    whatsapp_phone TEXT,
    created_at     TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS push_subscriptions (
    id           UUID PRIMARY KEY,
    recipient_id UUID REFERENCES recipients(id),
    endpoint     TEXT NOT NULL,
    active       BOOLEAN DEFAULT TRUE,
    created_at   TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS notification_preferences (
    recipient_id        UUID NOT NULL,
    category            TEXT NOT NULL DEFAULT '',
    email_enabled       BOOLEAN DEFAULT TRUE,
    sms_enabled         BOOLEAN DEFAULT TRUE,
    whatsapp_enabled    BOOLEAN DEFAULT TRUE,
    push_enabled        BOOLEAN DEFAULT TRUE,
    in_app_enabled      BOOLEAN DEFAULT TRUE,
    quiet_hours_enabled BOOLEAN DEFAULT FALSE,
    quiet_hours_start   VARCHAR(5),
    quiet_hours_end     VARCHAR(5),
    timezone            TEXT,
    PRIMARY KEY (recipient_id, category)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS notifications (
    id                  UUID PRIMARY KEY,
    recipient_id        UUID NOT NULL,
    channel             VARCHAR(20) NOT NULL,
    type                TEXT NOT NULL,
    title               TEXT NOT NULL,
    body                TEXT,
    priority            VARCHAR(10) NOT NULL DEFAULT 'medium',
    status              VARCHAR(20) NOT NULL DEFAULT 'pending',
    retry_count         INTEGER NOT NULL DEFAULT 0,
    max_retries         INTEGER NOT NULL DEFAULT 3,
    last_retry_at       TIMESTAMPTZ,
    next_retry_at       TIMESTAMPTZ,
    error_message       TEXT,
    provider_message_id TEXT,
    metadata            JSONB,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Retry scheduler eligibility scan.
		`CREATE INDEX IF NOT EXISTS idx_notifications_retry_eligible ON notifications(next_retry_at) WHERE status = 'failed'`,
		// Dedup guard lookup: (recipient, type) within a window.
		`CREATE INDEX IF NOT EXISTS idx_notifications_dedup ON notifications(recipient_id, type, created_at DESC)`,
		// Delivery-receipt correlation.
		`CREATE INDEX IF NOT EXISTS idx_notifications_provider_msg ON notifications(provider_message_id) WHERE provider_message_id IS NOT NULL`,
		// Operator failed-notification listing.
		`CREATE INDEX IF NOT EXISTS idx_notifications_status_created ON notifications(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_push_subscriptions_recipient ON push_subscriptions(recipient_id) WHERE active = TRUE`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
