package postgres

import (
	"fmt"
	"strings"

	"adhera-notify/internal/repository"
)

// FailedQueryBuilder assembles the parameterized SELECT for the operator-facing
// failed-notification listing. The record store's surface is otherwise a fixed
// set of typed operations; this builder exists only because the dashboard
// filter is combinatorial, and it still emits nothing but numbered
// placeholders.
type FailedQueryBuilder struct{}

// NewFailedQueryBuilder creates a new query builder instance.
func NewFailedQueryBuilder() *FailedQueryBuilder {
	return &FailedQueryBuilder{}
}

// Build returns the full query and arguments for a filtered failed listing,
// newest first, with limit/offset paging.
func (qb *FailedQueryBuilder) Build(filter repository.FailedFilter, limit, offset int) (string, []interface{}) {
	conditions := []string{"status = 'failed'"}
	var args []interface{}
	paramIndex := 1

	if filter.Channel != nil {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", paramIndex))
		args = append(args, string(*filter.Channel))
		paramIndex++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", paramIndex))
		args = append(args, *filter.Type)
		paramIndex++
	}
	if filter.Recipient != nil {
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", paramIndex))
		args = append(args, *filter.Recipient)
		paramIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", paramIndex))
		args = append(args, *filter.From)
		paramIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", paramIndex))
		args = append(args, *filter.To)
		paramIndex++
	}
	if filter.ExhaustedOnly {
		conditions = append(conditions, "retry_count >= max_retries")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM notifications
WHERE %s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`,
		strings.TrimSpace(notificationColumns),
		strings.Join(conditions, " AND "),
		paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	return query, args
}
