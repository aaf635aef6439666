package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

func TestFailedQueryBuilder_NoFilters(t *testing.T) {
	qb := NewFailedQueryBuilder()

	query, args := qb.Build(repository.FailedFilter{}, 20, 0)

	assert.Contains(t, query, "WHERE status = 'failed'")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Contains(t, query, "LIMIT $1 OFFSET $2")
	assert.Equal(t, []interface{}{20, 0}, args)
}

func TestFailedQueryBuilder_AllFilters(t *testing.T) {
	qb := NewFailedQueryBuilder()

	ch := entity.ChannelPush
	typ := entity.TypeMissedDose
	rcpt := "user-1"
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	query, args := qb.Build(repository.FailedFilter{
		Channel:       &ch,
		Type:          &typ,
		Recipient:     &rcpt,
		From:          &from,
		To:            &to,
		ExhaustedOnly: true,
	}, 10, 30)

	assert.Contains(t, query, "channel = $1")
	assert.Contains(t, query, "type = $2")
	assert.Contains(t, query, "recipient_id = $3")
	assert.Contains(t, query, "created_at >= $4")
	assert.Contains(t, query, "created_at <= $5")
	assert.Contains(t, query, "retry_count >= max_retries")
	assert.Contains(t, query, "LIMIT $6 OFFSET $7")
	assert.Equal(t, []interface{}{"push", typ, rcpt, from, to, 10, 30}, args)

	// Every condition is ANDed; no stray OR can widen the listing.
	assert.False(t, strings.Contains(query, " OR "))
}

func TestFailedQueryBuilder_PlaceholderNumbering(t *testing.T) {
	qb := NewFailedQueryBuilder()

	typ := entity.TypeRefillAlert
	query, args := qb.Build(repository.FailedFilter{Type: &typ}, 5, 5)

	// Skipped filters must not leave gaps in placeholder numbering.
	assert.Contains(t, query, "type = $1")
	assert.Contains(t, query, "LIMIT $2 OFFSET $3")
	assert.Len(t, args, 3)
}
