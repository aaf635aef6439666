package producer

import (
	"context"
	"fmt"
	"time"

	"adhera-notify/internal/domain/entity"
)

// Scan parameters for the concrete producers. Windows deliberately overlap
// successive runs so boundary records are never missed; the dedup guard
// absorbs the resulting re-examinations.
const (
	reminderWindow  = 30 * time.Minute
	missedLookback  = 24 * time.Hour
	expiryHorizon   = 14 * 24 * time.Hour
	refillThreshold = 7 // days of supply remaining
)

// NewMedicationReminderProducer reminds recipients of doses coming due.
// Runs every 15 minutes with a 30 minute look-ahead window.
func NewMedicationReminderProducer(src AdherenceSource, channel entity.Channel) Producer {
	return New("medication_reminder", "*/15 * * * *", func(ctx context.Context) ([]Candidate, error) {
		doses, err := src.DueDoses(ctx, reminderWindow)
		if err != nil {
			return nil, fmt.Errorf("scan due doses: %w", err)
		}
		candidates := make([]Candidate, 0, len(doses))
		for _, d := range doses {
			candidates = append(candidates, Candidate{
				RecipientID: d.RecipientID,
				Channel:     channel,
				Type:        entity.TypeMedicationReminder,
				Title:       "Time for your medication",
				Body:        fmt.Sprintf("Take %s of %s at %s.", d.Dosage, d.MedicationName, d.DueAt.Format("15:04")),
				Priority:    entity.PriorityMedium,
				Metadata:    map[string]any{"medication": d.MedicationName, "due_at": d.DueAt.Format(time.RFC3339)},
			})
		}
		return candidates, nil
	})
}

// NewMissedDoseProducer alerts recipients about unconfirmed doses.
// Runs every 30 minutes over a 24 hour lookback.
func NewMissedDoseProducer(src AdherenceSource, channel entity.Channel) Producer {
	return New("missed_dose", "*/30 * * * *", func(ctx context.Context) ([]Candidate, error) {
		missed, err := src.MissedDoses(ctx, missedLookback)
		if err != nil {
			return nil, fmt.Errorf("scan missed doses: %w", err)
		}
		candidates := make([]Candidate, 0, len(missed))
		for _, m := range missed {
			candidates = append(candidates, Candidate{
				RecipientID: m.RecipientID,
				Channel:     channel,
				Type:        entity.TypeMissedDose,
				Title:       "Missed dose",
				Body:        fmt.Sprintf("Your %s dose scheduled for %s was not confirmed.", m.MedicationName, m.ScheduledAt.Format("15:04")),
				Priority:    entity.PriorityHigh,
				Metadata:    map[string]any{"medication": m.MedicationName, "scheduled_at": m.ScheduledAt.Format(time.RFC3339)},
			})
		}
		return candidates, nil
	})
}

// NewExpiryWarningProducer warns about medications nearing their expiry date.
// Runs daily at 09:00 with a 14 day horizon.
func NewExpiryWarningProducer(src AdherenceSource, channel entity.Channel) Producer {
	return New("expiry_warning", "0 9 * * *", func(ctx context.Context) ([]Candidate, error) {
		expiring, err := src.ExpiringMedications(ctx, expiryHorizon)
		if err != nil {
			return nil, fmt.Errorf("scan expiring medications: %w", err)
		}
		candidates := make([]Candidate, 0, len(expiring))
		for _, e := range expiring {
			candidates = append(candidates, Candidate{
				RecipientID: e.RecipientID,
				Channel:     channel,
				Type:        entity.TypeExpiryWarning,
				Title:       "Medication expiring soon",
				Body:        fmt.Sprintf("%s expires on %s. Plan a replacement.", e.MedicationName, e.ExpiresAt.Format("2 Jan 2006")),
				Priority:    entity.PriorityMedium,
				Metadata:    map[string]any{"medication": e.MedicationName, "expires_at": e.ExpiresAt.Format(time.RFC3339)},
			})
		}
		return candidates, nil
	})
}

// NewRefillAlertProducer alerts when remaining supply drops below the
// threshold. Runs daily at 10:00.
func NewRefillAlertProducer(src AdherenceSource, channel entity.Channel) Producer {
	return New("refill_alert", "0 10 * * *", func(ctx context.Context) ([]Candidate, error) {
		low, err := src.LowSupplies(ctx, refillThreshold)
		if err != nil {
			return nil, fmt.Errorf("scan low supplies: %w", err)
		}
		candidates := make([]Candidate, 0, len(low))
		for _, l := range low {
			candidates = append(candidates, Candidate{
				RecipientID: l.RecipientID,
				Channel:     channel,
				Type:        entity.TypeRefillAlert,
				Title:       "Refill needed",
				Body:        fmt.Sprintf("Your supply of %s covers about %d more days.", l.MedicationName, l.DaysRemaining),
				Priority:    entity.PriorityMedium,
				Metadata:    map[string]any{"medication": l.MedicationName, "days_remaining": l.DaysRemaining},
			})
		}
		return candidates, nil
	})
}

// NewRiskScoreProducer notifies recipients whose adherence risk score
// crossed the alert threshold. Runs daily at 08:00.
func NewRiskScoreProducer(src AdherenceSource, channel entity.Channel) Producer {
	return New("risk_score", "0 8 * * *", func(ctx context.Context) ([]Candidate, error) {
		assessments, err := src.HighRiskAssessments(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan risk assessments: %w", err)
		}
		candidates := make([]Candidate, 0, len(assessments))
		for _, a := range assessments {
			candidates = append(candidates, Candidate{
				RecipientID: a.RecipientID,
				Channel:     channel,
				Type:        entity.TypeRiskScore,
				Title:       "Adherence check-in",
				Body:        "Your recent medication routine shows some gaps. A quick review with your care team can help.",
				Priority:    entity.PriorityHigh,
				Metadata:    map[string]any{"score": a.Score, "level": a.Level},
			})
		}
		return candidates, nil
	})
}
