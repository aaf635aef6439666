package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adhera-notify/internal/resilience/circuitbreaker"
	"adhera-notify/internal/usecase/producer"
)

// missedGracePeriod is how long after the scheduled time an unconfirmed dose
// counts as missed rather than merely late.
const missedGracePeriod = 30 * time.Minute

// riskAlertThreshold is the adherence risk score at or above which a
// recipient surfaces in HighRiskAssessments.
const riskAlertThreshold = 0.7

// AdherenceSource reads the medication schedule tables owned by the
// adherence platform. All queries are read-only; this engine never writes
// to these tables.
//
// Scans run behind a circuit breaker: when the store is down, the producer
// run fails fast and the next cron invocation retries naturally.
type AdherenceSource struct {
	db *circuitbreaker.DBCircuitBreaker
}

func NewAdherenceSource(db *sql.DB) producer.AdherenceSource {
	return &AdherenceSource{db: circuitbreaker.NewDBCircuitBreaker(db)}
}

func (s *AdherenceSource) DueDoses(ctx context.Context, window time.Duration) ([]producer.DueDose, error) {
	const query = `
SELECT si.recipient_id, m.name, si.dosage, si.due_at
FROM schedule_intakes si
JOIN medications m ON m.id = si.medication_id
WHERE si.confirmed_at IS NULL
  AND si.due_at >= now()
  AND si.due_at < now() + make_interval(secs => $1)
ORDER BY si.due_at ASC`

	rows, err := s.db.QueryContext(ctx, query, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("DueDoses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var doses []producer.DueDose
	for rows.Next() {
		var d producer.DueDose
		if err := rows.Scan(&d.RecipientID, &d.MedicationName, &d.Dosage, &d.DueAt); err != nil {
			return nil, fmt.Errorf("DueDoses: Scan: %w", err)
		}
		doses = append(doses, d)
	}
	return doses, rows.Err()
}

func (s *AdherenceSource) MissedDoses(ctx context.Context, lookback time.Duration) ([]producer.MissedDose, error) {
	const query = `
SELECT si.recipient_id, m.name, si.due_at
FROM schedule_intakes si
JOIN medications m ON m.id = si.medication_id
WHERE si.confirmed_at IS NULL
  AND si.due_at >= now() - make_interval(secs => $1)
  AND si.due_at < now() - make_interval(secs => $2)
ORDER BY si.due_at ASC`

	rows, err := s.db.QueryContext(ctx, query, lookback.Seconds(), missedGracePeriod.Seconds())
	if err != nil {
		return nil, fmt.Errorf("MissedDoses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var missed []producer.MissedDose
	for rows.Next() {
		var m producer.MissedDose
		if err := rows.Scan(&m.RecipientID, &m.MedicationName, &m.ScheduledAt); err != nil {
			return nil, fmt.Errorf("MissedDoses: Scan: %w", err)
		}
		missed = append(missed, m)
	}
	return missed, rows.Err()
}

func (s *AdherenceSource) ExpiringMedications(ctx context.Context, horizon time.Duration) ([]producer.ExpiringMedication, error) {
	const query = `
SELECT recipient_id, name, expires_at
FROM medications
WHERE active = TRUE
  AND expires_at >= now()
  AND expires_at < now() + make_interval(secs => $1)
ORDER BY expires_at ASC`

	rows, err := s.db.QueryContext(ctx, query, horizon.Seconds())
	if err != nil {
		return nil, fmt.Errorf("ExpiringMedications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expiring []producer.ExpiringMedication
	for rows.Next() {
		var e producer.ExpiringMedication
		if err := rows.Scan(&e.RecipientID, &e.MedicationName, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("ExpiringMedications: Scan: %w", err)
		}
		expiring = append(expiring, e)
	}
	return expiring, rows.Err()
}

func (s *AdherenceSource) LowSupplies(ctx context.Context, thresholdDays int) ([]producer.LowSupply, error) {
	// days_remaining is maintained by the adherence platform from stock and
	// the daily dose; a zero daily dose leaves it NULL, which we skip.
	const query = `
SELECT recipient_id, name, days_remaining
FROM medications
WHERE active = TRUE
  AND days_remaining IS NOT NULL
  AND days_remaining <= $1
ORDER BY days_remaining ASC`

	rows, err := s.db.QueryContext(ctx, query, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("LowSupplies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var low []producer.LowSupply
	for rows.Next() {
		var l producer.LowSupply
		if err := rows.Scan(&l.RecipientID, &l.MedicationName, &l.DaysRemaining); err != nil {
			return nil, fmt.Errorf("LowSupplies: Scan: %w", err)
		}
		low = append(low, l)
	}
	return low, rows.Err()
}

func (s *AdherenceSource) HighRiskAssessments(ctx context.Context) ([]producer.RiskAssessment, error) {
	// Latest score per recipient only; older assessments are history.
	const query = `
SELECT DISTINCT ON (recipient_id) recipient_id, score, level
FROM adherence_risk_scores
WHERE score >= $1
ORDER BY recipient_id, assessed_at DESC`

	rows, err := s.db.QueryContext(ctx, query, riskAlertThreshold)
	if err != nil {
		return nil, fmt.Errorf("HighRiskAssessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var risks []producer.RiskAssessment
	for rows.Next() {
		var r producer.RiskAssessment
		if err := rows.Scan(&r.RecipientID, &r.Score, &r.Level); err != nil {
			return nil, fmt.Errorf("HighRiskAssessments: Scan: %w", err)
		}
		risks = append(risks, r)
	}
	return risks, rows.Err()
}
