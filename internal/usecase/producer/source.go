package producer

import (
	"context"
	"time"
)

// DueDose is a medication intake coming due within the reminder window.
type DueDose struct {
	RecipientID    string
	MedicationName string
	Dosage         string
	DueAt          time.Time
}

// MissedDose is a scheduled intake with no confirmation after the grace
// period.
type MissedDose struct {
	RecipientID    string
	MedicationName string
	ScheduledAt    time.Time
}

// ExpiringMedication is a medication whose expiry date falls within the
// warning horizon.
type ExpiringMedication struct {
	RecipientID    string
	MedicationName string
	ExpiresAt      time.Time
}

// LowSupply is a medication whose remaining stock covers fewer days than the
// refill threshold.
type LowSupply struct {
	RecipientID    string
	MedicationName string
	DaysRemaining  int
}

// RiskAssessment is an adherence risk score crossing the alert threshold.
type RiskAssessment struct {
	RecipientID string
	Score       float64
	Level       string
}

// AdherenceSource reads the medication schedule data the producers scan.
// The adherence platform owns these tables; this engine only reads them.
type AdherenceSource interface {
	// DueDoses returns intakes due within the window from now.
	DueDoses(ctx context.Context, window time.Duration) ([]DueDose, error)

	// MissedDoses returns unconfirmed intakes scheduled within the lookback,
	// older than the grace period.
	MissedDoses(ctx context.Context, lookback time.Duration) ([]MissedDose, error)

	// ExpiringMedications returns medications expiring within the horizon.
	ExpiringMedications(ctx context.Context, horizon time.Duration) ([]ExpiringMedication, error)

	// LowSupplies returns medications below the refill threshold in days.
	LowSupplies(ctx context.Context, thresholdDays int) ([]LowSupply, error)

	// HighRiskAssessments returns recipients whose latest adherence risk
	// score crossed the alert threshold.
	HighRiskAssessments(ctx context.Context) ([]RiskAssessment, error)
}
