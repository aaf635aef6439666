package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mustTime builds a UTC instant at the given clock time on an arbitrary day.
func mustTime(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2025-06-15 "+hhmm)
	if err != nil {
		t.Fatalf("bad test time %q: %v", hhmm, err)
	}
	return parsed.UTC()
}

func TestInQuietHours_Wraparound(t *testing.T) {
	pref := &RecipientPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "07:00",
	}

	tests := []struct {
		now  string
		want bool
	}{
		{"23:30", true},  // inside, before midnight
		{"03:00", true},  // inside, after midnight
		{"06:59", true},  // last minute of window
		{"07:00", false}, // end is exclusive
		{"12:00", false}, // daytime
		{"21:59", false}, // just before window opens
		{"22:00", true},  // start is inclusive
	}

	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			assert.Equal(t, tt.want, pref.InQuietHours(mustTime(t, tt.now)))
		})
	}
}

func TestInQuietHours_NonWrapping(t *testing.T) {
	pref := &RecipientPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "09:00",
		QuietHoursEnd:     "17:00",
	}

	assert.True(t, pref.InQuietHours(mustTime(t, "10:00")))
	assert.True(t, pref.InQuietHours(mustTime(t, "09:00")))
	assert.False(t, pref.InQuietHours(mustTime(t, "17:00")))
	assert.False(t, pref.InQuietHours(mustTime(t, "08:59")))
	assert.False(t, pref.InQuietHours(mustTime(t, "23:00")))
}

func TestInQuietHours_Disabled(t *testing.T) {
	pref := &RecipientPreference{
		QuietHoursEnabled: false,
		QuietHoursStart:   "00:00",
		QuietHoursEnd:     "23:59",
	}
	assert.False(t, pref.InQuietHours(mustTime(t, "12:00")))
}

func TestInQuietHours_Timezone(t *testing.T) {
	// 02:00 UTC is 11:00 in Tokyo: outside a 22:00-07:00 local window.
	pref := &RecipientPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "07:00",
		Timezone:          "Asia/Tokyo",
	}
	assert.False(t, pref.InQuietHours(mustTime(t, "02:00")))

	// 14:00 UTC is 23:00 in Tokyo: inside the window.
	assert.True(t, pref.InQuietHours(mustTime(t, "14:00")))
}

func TestInQuietHours_InvalidWindow(t *testing.T) {
	// Malformed times fail open: better to send than to silently drop.
	pref := &RecipientPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "not-a-time",
		QuietHoursEnd:     "07:00",
	}
	assert.False(t, pref.InQuietHours(mustTime(t, "23:00")))

	// Equal start and end covers nothing.
	pref = &RecipientPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "08:00",
		QuietHoursEnd:     "08:00",
	}
	assert.False(t, pref.InQuietHours(mustTime(t, "08:00")))
}

func TestChannelEnabled(t *testing.T) {
	pref := &RecipientPreference{
		EmailEnabled: true,
		PushEnabled:  true,
	}

	assert.True(t, pref.ChannelEnabled(ChannelEmail))
	assert.True(t, pref.ChannelEnabled(ChannelPush))
	assert.False(t, pref.ChannelEnabled(ChannelSMS))
	assert.False(t, pref.ChannelEnabled(ChannelWhatsApp))
	assert.False(t, pref.ChannelEnabled(Channel("bogus")))
}

func TestDefaultPreference(t *testing.T) {
	pref := DefaultPreference("user-1")

	assert.Equal(t, "user-1", pref.RecipientID)
	for _, ch := range Channels {
		assert.True(t, pref.ChannelEnabled(ch), "default preference should opt into %q", ch)
	}
	assert.False(t, pref.QuietHoursEnabled)
}

func TestRecipient_AddressFor(t *testing.T) {
	r := &Recipient{
		Email:         "pat@example.com",
		Phone:         "+15550100",
		WhatsAppPhone: "+15550199",
	}

	assert.Equal(t, "pat@example.com", r.AddressFor(ChannelEmail))
	assert.Equal(t, "+15550100", r.AddressFor(ChannelSMS))
	assert.Equal(t, "+15550199", r.AddressFor(ChannelWhatsApp))

	// WhatsApp falls back to the SMS phone when no dedicated number exists.
	r.WhatsAppPhone = ""
	assert.Equal(t, "+15550100", r.AddressFor(ChannelWhatsApp))

	// Push and in-app have no single address.
	assert.Empty(t, r.AddressFor(ChannelPush))
	assert.Empty(t, r.AddressFor(ChannelInApp))
}

func TestRecipient_ActivePushSubscriptions(t *testing.T) {
	r := &Recipient{
		PushSubscriptions: []PushSubscription{
			{ID: "a", Active: true},
			{ID: "b", Active: false},
			{ID: "c", Active: true},
		},
	}

	active := r.ActivePushSubscriptions()
	assert.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)
}
