// Package retryer implements the retry scheduler: the periodic scan that
// re-delivers failed notifications until they succeed or exhaust their
// retry budget.
//
// The scheduler runs independently from the dispatcher's synchronous path.
// Each run claims a bounded batch of eligible records (status failed, budget
// remaining, backoff elapsed) and pushes each one back through the same
// channel send path a first delivery uses. The manual operator "retry now"
// endpoint enters through RetrySingle with identical mechanics.
package retryer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
	"adhera-notify/internal/usecase/dispatch"
)

// ErrNotEligible indicates a manual retry targeted a record that is not in
// the failed state or has no retry budget left.
var ErrNotEligible = errors.New("notification is not eligible for retry")

// Config tunes the scheduler.
type Config struct {
	// Backoff is the minimum age of the last attempt before a record is
	// eligible again
	Backoff time.Duration

	// BatchSize caps eligible records per run to avoid retry storms
	BatchSize int
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Backoff:   10 * time.Minute,
		BatchSize: 50,
	}
}

// Stats summarizes one scheduler run.
type Stats struct {
	Eligible  int
	Claimed   int
	Sent      int
	Failed    int
	Exhausted int
}

// Service re-delivers failed notifications.
type Service interface {
	// RunOnce performs one eligibility scan and processes the batch. An empty
	// scan is a no-op. Per-record failures are absorbed; only infrastructure
	// errors (the scan itself failing) are returned.
	RunOnce(ctx context.Context) (Stats, error)

	// RetrySingle re-delivers one record immediately, bypassing the backoff
	// wait but honoring the claim guard and the retry budget. Returns
	// ErrNotEligible when the record cannot be retried.
	RetrySingle(ctx context.Context, id string) (dispatch.Result, error)
}

type service struct {
	notifications repository.NotificationRepository
	dispatcher    dispatch.Service
	cfg           Config
}

// NewService creates a retry scheduler service.
func NewService(notifications repository.NotificationRepository, dispatcher dispatch.Service, cfg Config) Service {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultConfig().Backoff
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &service{
		notifications: notifications,
		dispatcher:    dispatcher,
		cfg:           cfg,
	}
}

// RunOnce implements Service.RunOnce.
func (s *service) RunOnce(ctx context.Context) (Stats, error) {
	now := time.Now()
	eligible, err := s.notifications.ListRetryEligible(ctx, now, s.cfg.Backoff, s.cfg.BatchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("list retry eligible: %w", err)
	}

	RecordRun(len(eligible))
	stats := Stats{Eligible: len(eligible)}
	if len(eligible) == 0 {
		return stats, nil
	}

	slog.Info("retry scan found eligible notifications",
		slog.Int("count", len(eligible)))

	for _, rec := range eligible {
		if err := ctx.Err(); err != nil {
			// Interrupted mid-batch: unclaimed records stay failed and
			// surface in the next scan.
			slog.Warn("retry run interrupted", slog.Any("error", err))
			return stats, nil
		}
		s.retryOne(ctx, rec, now, &stats)
	}

	slog.Info("retry run complete",
		slog.Int("eligible", stats.Eligible),
		slog.Int("claimed", stats.Claimed),
		slog.Int("sent", stats.Sent),
		slog.Int("failed", stats.Failed),
		slog.Int("exhausted", stats.Exhausted))
	return stats, nil
}

// retryOne claims and re-delivers a single record. Failures are logged and
// counted, never propagated; one bad record must not starve the batch.
func (s *service) retryOne(ctx context.Context, rec *entity.NotificationRecord, now time.Time, stats *Stats) {
	claimed, err := s.notifications.MarkRetrying(ctx, rec.ID, now)
	if err != nil {
		slog.Warn("retry claim failed",
			slog.String("notification_id", rec.ID),
			slog.Any("error", err))
		return
	}
	if !claimed {
		// Another scan got there first, or the record moved on.
		slog.Debug("retry claim lost", slog.String("notification_id", rec.ID))
		return
	}
	stats.Claimed++

	// Mirror the claimed transition locally so the send path sees the
	// post-claim state.
	rec.Status = entity.StatusRetrying
	rec.RetryCount++
	rec.LastRetryAt = &now
	rec.NextRetryAt = nil

	res, err := s.dispatcher.Deliver(ctx, rec)
	if err != nil {
		// Infrastructure error after the claim: record the failure so the
		// attempt is not silently lost.
		slog.Error("retry delivery errored",
			slog.String("notification_id", rec.ID),
			slog.Any("error", err))
		s.markDeliveryError(ctx, rec, err)
		stats.Failed++
		RecordAttempt(string(rec.Channel), "failed")
		return
	}

	switch res.Kind {
	case dispatch.ResultSent:
		stats.Sent++
		RecordAttempt(string(rec.Channel), "sent")
	default:
		stats.Failed++
		RecordAttempt(string(rec.Channel), "failed")
		if res.Record != nil && res.Record.IsExhausted() {
			stats.Exhausted++
			RecordExhausted(string(rec.Channel))
			slog.Warn("notification exhausted retries",
				slog.String("notification_id", rec.ID),
				slog.String("channel", string(rec.Channel)),
				slog.Int("retry_count", res.Record.RetryCount))
		}
	}
}

// markDeliveryError moves a claimed record back to failed after an
// infrastructure error so it is not stranded in retrying.
func (s *service) markDeliveryError(ctx context.Context, rec *entity.NotificationRecord, cause error) {
	var nextRetryAt *time.Time
	if rec.RetryCount < rec.MaxRetries {
		t := time.Now().Add(s.cfg.Backoff)
		nextRetryAt = &t
	}
	if err := s.notifications.MarkFailed(ctx, rec.ID, cause.Error(), nextRetryAt); err != nil {
		slog.Error("failed to record retry delivery error",
			slog.String("notification_id", rec.ID),
			slog.Any("error", err))
	}
}

// RetrySingle implements Service.RetrySingle.
func (s *service) RetrySingle(ctx context.Context, id string) (dispatch.Result, error) {
	rec, err := s.notifications.Get(ctx, id)
	if err != nil {
		return dispatch.Result{}, err
	}

	now := time.Now()
	claimed, err := s.notifications.MarkRetrying(ctx, rec.ID, now)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("claim retry: %w", err)
	}
	if !claimed {
		return dispatch.Result{}, fmt.Errorf("%w: %s (status %s, %d/%d retries)",
			ErrNotEligible, rec.ID, rec.Status, rec.RetryCount, rec.MaxRetries)
	}

	rec.Status = entity.StatusRetrying
	rec.RetryCount++
	rec.LastRetryAt = &now
	rec.NextRetryAt = nil

	slog.Info("manual retry",
		slog.String("notification_id", rec.ID),
		slog.String("channel", string(rec.Channel)),
		slog.Int("retry_count", rec.RetryCount))

	res, err := s.dispatcher.Deliver(ctx, rec)
	if err != nil {
		s.markDeliveryError(ctx, rec, err)
		return dispatch.Result{}, err
	}

	switch res.Kind {
	case dispatch.ResultSent:
		RecordAttempt(string(rec.Channel), "sent")
	default:
		RecordAttempt(string(rec.Channel), "failed")
		if res.Record != nil && res.Record.IsExhausted() {
			RecordExhausted(string(rec.Channel))
		}
	}
	return res, nil
}
