// Package entity defines the core domain entities and validation logic for the
// notification engine. It contains the NotificationRecord delivery state machine,
// recipient preferences with quiet-hours evaluation, and domain-specific errors.
package entity

import (
	"time"
)

// Channel identifies a delivery medium for a notification.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelInApp    Channel = "in_app"
)

// Channels lists every supported delivery channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp}

// Valid reports whether c is a known delivery channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// Priority classifies a notification's importance. It is informational for
// downstream consumers and does not alter retry policy; the one behavioral
// exception is that urgent notifications bypass quiet hours.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status represents a notification record's position in its delivery lifecycle.
//
// Success path:  pending -> sent -> delivered -> opened -> clicked
// Failure path:  pending -> failed -> retrying -> (sent | failed)
// Suppression:   suppressed (terminal, no provider call was made)
//
// "sent" means the provider accepted the payload; it is not proof of end-user
// delivery. The engagement statuses (delivered, opened, clicked) are advanced
// only by asynchronous provider receipts.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSent       Status = "sent"
	StatusDelivered  Status = "delivered"
	StatusOpened     Status = "opened"
	StatusClicked    Status = "clicked"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
	StatusSuppressed Status = "suppressed"
)

// engagementRank orders the terminal success statuses so that out-of-order
// provider receipts (e.g. a click arriving before the open) never regress state.
var engagementRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusOpened:    2,
	StatusClicked:   3,
}

// EngagementRank returns the position of s on the sent -> clicked ladder,
// or -1 if s is not an engagement status.
func (s Status) EngagementRank() int {
	if r, ok := engagementRank[s]; ok {
		return r
	}
	return -1
}

// transitions encodes the forward-only state machine.
var transitions = map[Status][]Status{
	StatusPending:    {StatusSent, StatusFailed, StatusSuppressed},
	StatusSent:       {StatusDelivered, StatusOpened, StatusClicked},
	StatusDelivered:  {StatusOpened, StatusClicked},
	StatusOpened:     {StatusClicked},
	StatusFailed:     {StatusRetrying},
	StatusRetrying:   {StatusSent, StatusFailed},
	StatusClicked:    nil,
	StatusSuppressed: nil,
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition in the delivery state machine.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// DefaultMaxRetries is the retry ceiling applied when a record is created
// without an explicit limit.
const DefaultMaxRetries = 3

// NotificationRecord is the single source of truth for one attempted send.
// One record exists per (recipient, type, dedup key) within the type's dedup
// window; the record carries all retry bookkeeping.
type NotificationRecord struct {
	ID          string
	RecipientID string
	Channel     Channel
	Type        string
	Title       string
	Body        string
	Priority    Priority
	Status      Status

	RetryCount int
	MaxRetries int

	LastRetryAt *time.Time
	NextRetryAt *time.Time

	// ErrorMessage holds the normalized failure reason from the last attempt.
	ErrorMessage string

	// ProviderMessageID correlates the record with asynchronous delivery
	// receipts from the provider. Empty until the provider accepts the send.
	ProviderMessageID string

	// Metadata is an open key/value bag for channel-specific or audit
	// correlation data. Values round-trip unmodified through the store.
	Metadata map[string]any

	CreatedAt time.Time
}

// IsExhausted reports whether the record has used all permitted retry attempts
// and must never appear in another retry-eligibility scan.
func (n *NotificationRecord) IsExhausted() bool {
	return n.Status == StatusFailed && n.RetryCount >= n.MaxRetries
}

// IsTerminal reports whether the record can make no further transitions other
// than receipt-driven engagement advancement.
func (n *NotificationRecord) IsTerminal() bool {
	switch n.Status {
	case StatusClicked, StatusSuppressed:
		return true
	case StatusFailed:
		return n.IsExhausted()
	}
	return false
}

// NotificationType is a taxonomy tag attached to each record. The dispatch
// logic interprets it only for deduplication; everything else is analytics.
const (
	TypeMedicationReminder = "medication_reminder"
	TypeMissedDose         = "missed_dose"
	TypeExpiryWarning      = "expiry_warning"
	TypeRefillAlert        = "refill_alert"
	TypeRiskScore          = "risk_score"
	TypePolypharmacy       = "polypharmacy_alert"
	TypeSecurityAlert      = "security_alert"
)

// dedupWindows maps a notification type to the lookback window within which
// a second record for the same (recipient, type) must not be created.
// Producers rescan overlapping time windows on fixed schedules, so this guard
// is the correctness mechanism against duplicate patient-facing sends.
// A zero window disables deduplication for the type.
var dedupWindows = map[string]time.Duration{
	TypeMedicationReminder: 6 * time.Hour,
	TypeMissedDose:         24 * time.Hour,
	TypeExpiryWarning:      7 * 24 * time.Hour,
	TypeRefillAlert:        3 * 24 * time.Hour,
	TypeRiskScore:          30 * 24 * time.Hour,
	TypePolypharmacy:       30 * 24 * time.Hour,
	TypeSecurityAlert:      0, // security alerts are never deduplicated
}

// defaultDedupWindow applies to notification types without an explicit entry.
const defaultDedupWindow = 24 * time.Hour

// typeCategories maps a notification type to the preference category a
// recipient configures in the settings UI. Unknown types resolve to the
// recipient's default preference row.
var typeCategories = map[string]string{
	TypeMedicationReminder: "reminders",
	TypeMissedDose:         "reminders",
	TypeExpiryWarning:      "reminders",
	TypeRefillAlert:        "reminders",
	TypeRiskScore:          "clinical",
	TypePolypharmacy:       "clinical",
	TypeSecurityAlert:      "security",
}

// CategoryFor returns the preference category for a notification type.
func CategoryFor(notificationType string) string {
	return typeCategories[notificationType]
}

// DedupWindow returns the deduplication lookback window for a notification
// type. A zero duration means the type is exempt from deduplication.
func DedupWindow(notificationType string) time.Duration {
	if w, ok := dedupWindows[notificationType]; ok {
		return w
	}
	return defaultDedupWindow
}
