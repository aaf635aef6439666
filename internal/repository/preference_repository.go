package repository

import (
	"context"

	"adhera-notify/internal/domain/entity"
)

// PreferenceRepository loads recipient notification preferences. The settings
// UI owns writes; the engine only reads.
type PreferenceRepository interface {
	// GetByRecipient returns the recipient's preference for a category,
	// falling back to the recipient's default row and finally to
	// entity.DefaultPreference when nothing is stored. Never returns
	// entity.ErrNotFound.
	GetByRecipient(ctx context.Context, recipientID, category string) (*entity.RecipientPreference, error)
}
