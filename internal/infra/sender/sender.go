// Package sender provides channel adapters for delivering notifications.
// It defines the Sender interface which allows the delivery mechanisms
// (email, SMS, WhatsApp, web push, in-app) to be used interchangeably
// through dependency injection.
//
// Adapters normalize provider responses into a three-way Outcome so the
// dispatcher and retry scheduler never need provider-specific knowledge.
// The package includes a no-op sender for disabled channels.
package sender

import (
	"context"

	"adhera-notify/internal/domain/entity"
)

// OutcomeStatus classifies the result of a single delivery attempt.
type OutcomeStatus string

const (
	// Accepted means the provider took responsibility for the message.
	Accepted OutcomeStatus = "accepted"

	// Rejected means the provider refused the message and a retry with the
	// same payload would fail the same way (bad address, invalid template).
	Rejected OutcomeStatus = "rejected"

	// TransientFailure means the attempt failed for a reason that may clear
	// on its own (timeout, 5xx, rate limit, open circuit).
	TransientFailure OutcomeStatus = "transient_failure"
)

// Outcome is the normalized result of a delivery attempt.
type Outcome struct {
	Status OutcomeStatus

	// Reason carries the provider's rejection or failure detail for the
	// notification record's error_message column.
	Reason string

	// ProviderMessageID is the provider-side correlation id used to match
	// delivery receipts back to the record. Set only when Status == Accepted.
	ProviderMessageID string

	// StaleSubscriptionIDs lists push subscriptions the provider reported
	// gone (404/410). The dispatcher deactivates them as a side effect.
	StaleSubscriptionIDs []string
}

// Accept builds an Accepted outcome with the provider correlation id.
func Accept(providerMessageID string) Outcome {
	return Outcome{Status: Accepted, ProviderMessageID: providerMessageID}
}

// Reject builds a Rejected outcome with the permanent failure reason.
func Reject(reason string) Outcome {
	return Outcome{Status: Rejected, Reason: reason}
}

// Transient builds a TransientFailure outcome with the failure reason.
func Transient(reason string) Outcome {
	return Outcome{Status: TransientFailure, Reason: reason}
}

// DeliveryRequest carries everything an adapter needs for one attempt.
type DeliveryRequest struct {
	Record    *entity.NotificationRecord
	Recipient *entity.Recipient
}

// Sender delivers notifications over a single channel.
// Implementations handle rate limiting, provider authentication, and error
// normalization internally; they never mutate the notification record.
type Sender interface {
	// Name returns the channel this sender serves.
	Name() entity.Channel

	// Enabled reports whether the adapter is configured for real delivery.
	// Disabled senders are skipped at registry construction time.
	Enabled() bool

	// Send performs exactly one delivery attempt. It must honor ctx
	// cancellation and always return a classified Outcome; infrastructure
	// errors surface as TransientFailure, never as a panic or a zero Outcome.
	Send(ctx context.Context, req *DeliveryRequest) Outcome
}

// Registry maps channels to their configured senders.
type Registry map[entity.Channel]Sender

// NewRegistry indexes the enabled senders by channel. Disabled senders are
// dropped so a lookup miss means the channel is not deliverable.
func NewRegistry(senders ...Sender) Registry {
	r := make(Registry, len(senders))
	for _, s := range senders {
		if s != nil && s.Enabled() {
			r[s.Name()] = s
		}
	}
	return r
}

// For returns the sender for a channel, or false when the channel is not
// configured.
func (r Registry) For(ch entity.Channel) (Sender, bool) {
	s, ok := r[ch]
	return s, ok
}
