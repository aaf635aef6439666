package entity

import "time"

// Recipient is the engine's view of a user: the contact points each channel
// needs. The user entity itself is owned externally; the engine only holds
// the reference and the addresses.
type Recipient struct {
	ID            string
	Email         string
	Phone         string
	WhatsAppPhone string

	// PushSubscriptions holds the recipient's active device/browser push
	// endpoints. Stale subscriptions are deactivated when the provider
	// reports them gone.
	PushSubscriptions []PushSubscription
}

// PushSubscription is one device or browser push endpoint.
type PushSubscription struct {
	ID        string
	Endpoint  string
	Active    bool
	CreatedAt time.Time
}

// AddressFor returns the contact address for a channel, or empty when the
// recipient has none on file. Push and in-app channels do not use a single
// address and return empty.
func (r *Recipient) AddressFor(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return r.Email
	case ChannelSMS:
		return r.Phone
	case ChannelWhatsApp:
		if r.WhatsAppPhone != "" {
			return r.WhatsAppPhone
		}
		return r.Phone
	}
	return ""
}

// ActivePushSubscriptions filters the recipient's subscriptions to those
// still active.
func (r *Recipient) ActivePushSubscriptions() []PushSubscription {
	subs := make([]PushSubscription, 0, len(r.PushSubscriptions))
	for _, s := range r.PushSubscriptions {
		if s.Active {
			subs = append(subs, s)
		}
	}
	return subs
}
