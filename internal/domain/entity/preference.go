package entity

import (
	"fmt"
	"time"
)

// RecipientPreference holds one recipient's channel opt-ins and quiet-hours
// window for a notification category. It is read-mostly input to the
// dispatcher; the settings UI owns mutation.
type RecipientPreference struct {
	RecipientID string

	// Category scopes the preference row (e.g. "reminders", "alerts").
	// An empty category is the recipient's default preference.
	Category string

	EmailEnabled    bool
	SMSEnabled      bool
	WhatsAppEnabled bool
	PushEnabled     bool
	InAppEnabled    bool

	QuietHoursEnabled bool
	// QuietHoursStart and QuietHoursEnd are local times of day in "HH:MM".
	// A window whose end is before its start wraps past midnight.
	QuietHoursStart string
	QuietHoursEnd   string
	// Timezone is the recipient's IANA timezone name. Falls back to UTC when
	// empty or unloadable.
	Timezone string
}

// DefaultPreference returns the preference applied when a recipient has no
// stored row: every channel opted in, quiet hours disabled.
func DefaultPreference(recipientID string) *RecipientPreference {
	return &RecipientPreference{
		RecipientID:     recipientID,
		EmailEnabled:    true,
		SMSEnabled:      true,
		WhatsAppEnabled: true,
		PushEnabled:     true,
		InAppEnabled:    true,
	}
}

// ChannelEnabled reports whether the recipient has opted into the channel.
// Unknown channels are treated as opted out.
func (p *RecipientPreference) ChannelEnabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelWhatsApp:
		return p.WhatsAppEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelInApp:
		return p.InAppEnabled
	}
	return false
}

// InQuietHours reports whether now falls inside the recipient's quiet-hours
// window. The instant is resolved to the recipient's local time first.
// Windows that wrap past midnight (end < start, e.g. 22:00-07:00) are treated
// as two disjoint ranges. The function is pure: no I/O beyond the embedded
// timezone database lookup, no side effects.
func (p *RecipientPreference) InQuietHours(now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}

	start, err := parseTimeOfDay(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseTimeOfDay(p.QuietHoursEnd)
	if err != nil {
		return false
	}

	loc := time.UTC
	if p.Timezone != "" {
		if l, err := time.LoadLocation(p.Timezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()

	if start == end {
		// Degenerate window covers nothing.
		return false
	}
	if start < end {
		return minutes >= start && minutes < end
	}
	// Wraparound: [start, midnight) plus [midnight, end).
	return minutes >= start || minutes < end
}

// parseTimeOfDay converts "HH:MM" to minutes since midnight.
func parseTimeOfDay(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, &ValidationError{Field: "quiet_hours", Message: fmt.Sprintf("invalid time of day %q", s)}
	}
	return hh*60 + mm, nil
}
