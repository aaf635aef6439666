package repository

import (
	"context"

	"adhera-notify/internal/domain/entity"
)

// RecipientRepository resolves recipient references to contact points.
type RecipientRepository interface {
	// Get returns the recipient with contact addresses and active push
	// subscriptions, or entity.ErrNotFound.
	Get(ctx context.Context, id string) (*entity.Recipient, error)

	// DeactivatePushSubscription marks a push subscription inactive. Called
	// when the push provider reports the endpoint gone (404/410).
	DeactivatePushSubscription(ctx context.Context, subscriptionID string) error
}
