package producer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/usecase/dispatch"
)

// stubSource implements AdherenceSource with canned rows.
type stubSource struct {
	dueDoses    []DueDose
	missed      []MissedDose
	expiring    []ExpiringMedication
	lowSupplies []LowSupply
	assessments []RiskAssessment
	err         error
}

func (s *stubSource) DueDoses(_ context.Context, _ time.Duration) ([]DueDose, error) {
	return s.dueDoses, s.err
}

func (s *stubSource) MissedDoses(_ context.Context, _ time.Duration) ([]MissedDose, error) {
	return s.missed, s.err
}

func (s *stubSource) ExpiringMedications(_ context.Context, _ time.Duration) ([]ExpiringMedication, error) {
	return s.expiring, s.err
}

func (s *stubSource) LowSupplies(_ context.Context, _ int) ([]LowSupply, error) {
	return s.lowSupplies, s.err
}

func (s *stubSource) HighRiskAssessments(_ context.Context) ([]RiskAssessment, error) {
	return s.assessments, s.err
}

// stubDispatcher records every batch it receives.
type stubDispatcher struct {
	mu      sync.Mutex
	batches [][]dispatch.Input
	result  dispatch.Result
}

func (d *stubDispatcher) Dispatch(_ context.Context, in dispatch.Input) (dispatch.Result, error) {
	return d.DispatchBatch(context.Background(), []dispatch.Input{in})[0], nil
}

func (d *stubDispatcher) DispatchBatch(_ context.Context, ins []dispatch.Input) []dispatch.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, ins)
	results := make([]dispatch.Result, len(ins))
	for i := range results {
		results[i] = d.result
	}
	return results
}

func (d *stubDispatcher) Deliver(_ context.Context, _ *entity.NotificationRecord) (dispatch.Result, error) {
	return d.result, nil
}

func (d *stubDispatcher) Shutdown(_ context.Context) error { return nil }

func (d *stubDispatcher) dispatched() []dispatch.Input {
	d.mu.Lock()
	defer d.mu.Unlock()
	var flat []dispatch.Input
	for _, b := range d.batches {
		flat = append(flat, b...)
	}
	return flat
}

func TestNew(t *testing.T) {
	called := false
	p := New("test", "*/5 * * * *", func(_ context.Context) ([]Candidate, error) {
		called = true
		return []Candidate{{RecipientID: "r1"}}, nil
	})

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, "*/5 * * * *", p.Schedule())

	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
	assert.Len(t, candidates, 1)
}

func TestMedicationReminderProducer(t *testing.T) {
	due := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	src := &stubSource{dueDoses: []DueDose{
		{RecipientID: "r1", MedicationName: "Metformin", Dosage: "500mg", DueAt: due},
	}}

	p := NewMedicationReminderProducer(src, entity.ChannelPush)
	assert.Equal(t, "medication_reminder", p.Name())
	assert.Equal(t, "*/15 * * * *", p.Schedule())

	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "r1", c.RecipientID)
	assert.Equal(t, entity.ChannelPush, c.Channel)
	assert.Equal(t, entity.TypeMedicationReminder, c.Type)
	assert.Equal(t, entity.PriorityMedium, c.Priority)
	assert.Contains(t, c.Body, "Metformin")
	assert.Contains(t, c.Body, "500mg")
	assert.Contains(t, c.Body, "08:30")
	assert.Equal(t, "Metformin", c.Metadata["medication"])
}

func TestMissedDoseProducer(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	src := &stubSource{missed: []MissedDose{
		{RecipientID: "r2", MedicationName: "Lisinopril", ScheduledAt: scheduled},
	}}

	p := NewMissedDoseProducer(src, entity.ChannelSMS)
	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, entity.TypeMissedDose, c.Type)
	assert.Equal(t, entity.PriorityHigh, c.Priority)
	assert.Contains(t, c.Body, "Lisinopril")
	assert.Contains(t, c.Body, "08:00")
}

func TestExpiryWarningProducer(t *testing.T) {
	expires := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	src := &stubSource{expiring: []ExpiringMedication{
		{RecipientID: "r3", MedicationName: "Insulin", ExpiresAt: expires},
	}}

	p := NewExpiryWarningProducer(src, entity.ChannelEmail)
	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, entity.TypeExpiryWarning, c.Type)
	assert.Contains(t, c.Body, "Insulin")
	assert.Contains(t, c.Body, "24 Mar 2026")
}

func TestRefillAlertProducer(t *testing.T) {
	src := &stubSource{lowSupplies: []LowSupply{
		{RecipientID: "r4", MedicationName: "Atorvastatin", DaysRemaining: 5},
	}}

	p := NewRefillAlertProducer(src, entity.ChannelEmail)
	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, entity.TypeRefillAlert, c.Type)
	assert.Contains(t, c.Body, "Atorvastatin")
	assert.Contains(t, c.Body, "5 more days")
}

func TestRiskScoreProducer(t *testing.T) {
	src := &stubSource{assessments: []RiskAssessment{
		{RecipientID: "r5", Score: 0.82, Level: "high"},
	}}

	p := NewRiskScoreProducer(src, entity.ChannelInApp)
	candidates, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, entity.TypeRiskScore, c.Type)
	assert.Equal(t, entity.PriorityHigh, c.Priority)
	assert.Equal(t, 0.82, c.Metadata["score"])
	assert.Equal(t, "high", c.Metadata["level"])
}

func TestProducerSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}

	for _, p := range []Producer{
		NewMedicationReminderProducer(src, entity.ChannelPush),
		NewMissedDoseProducer(src, entity.ChannelPush),
		NewExpiryWarningProducer(src, entity.ChannelPush),
		NewRefillAlertProducer(src, entity.ChannelPush),
		NewRiskScoreProducer(src, entity.ChannelPush),
	} {
		_, err := p.Collect(context.Background())
		assert.Error(t, err, p.Name())
		assert.True(t, strings.Contains(err.Error(), "connection refused"), p.Name())
	}
}

func TestRunnerRunProducer(t *testing.T) {
	d := &stubDispatcher{result: dispatch.Result{Kind: dispatch.ResultSent}}
	r := NewRunner(d, time.UTC)

	p := New("test", "* * * * *", func(_ context.Context) ([]Candidate, error) {
		return []Candidate{
			{RecipientID: "r1", Channel: entity.ChannelPush, Type: entity.TypeMedicationReminder},
			{RecipientID: "r2", Channel: entity.ChannelPush, Type: entity.TypeMedicationReminder},
		}, nil
	})

	stats, err := r.RunProducer(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Sent)
	assert.Len(t, d.dispatched(), 2)
}

func TestRunnerRunProducerCollectError(t *testing.T) {
	d := &stubDispatcher{}
	r := NewRunner(d, time.UTC)

	p := New("broken", "* * * * *", func(_ context.Context) ([]Candidate, error) {
		return nil, errors.New("source down")
	})

	_, err := r.RunProducer(context.Background(), p)
	assert.Error(t, err)
	assert.Empty(t, d.dispatched())
}

func TestRunnerRunProducerEmpty(t *testing.T) {
	d := &stubDispatcher{}
	r := NewRunner(d, time.UTC)

	p := New("quiet", "* * * * *", func(_ context.Context) ([]Candidate, error) {
		return nil, nil
	})

	stats, err := r.RunProducer(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Empty(t, d.batches)
}

func TestRunnerChunking(t *testing.T) {
	d := &stubDispatcher{result: dispatch.Result{Kind: dispatch.ResultSkipped}}
	r := NewRunner(d, time.UTC, WithChunkSize(10))

	p := New("bulk", "* * * * *", func(_ context.Context) ([]Candidate, error) {
		candidates := make([]Candidate, 25)
		for i := range candidates {
			candidates[i] = Candidate{RecipientID: "r", Channel: entity.ChannelPush}
		}
		return candidates, nil
	})

	stats, err := r.RunProducer(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Candidates)
	assert.Equal(t, 25, stats.Skipped)
	assert.Len(t, d.dispatched(), 25)
	assert.Len(t, d.batches, 3)
}

func TestRunnerAddRejectsBadSchedule(t *testing.T) {
	r := NewRunner(&stubDispatcher{}, time.UTC)

	err := r.Add(New("bad", "not a schedule", func(_ context.Context) ([]Candidate, error) {
		return nil, nil
	}))
	assert.Error(t, err)
}

func TestRunnerAddJob(t *testing.T) {
	r := NewRunner(&stubDispatcher{}, time.UTC)

	err := r.AddJob("retry", "*/5 * * * *", func(_ context.Context) {})
	assert.NoError(t, err)

	err = r.AddJob("bad", "nope", func(_ context.Context) {})
	assert.Error(t, err)
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner(&stubDispatcher{}, time.UTC)
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}
