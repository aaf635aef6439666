// Package dispatch implements the notification dispatcher: the single entry
// point producers use to get a message to a recipient over one channel.
//
// A dispatch call resolves the recipient and their preferences, applies the
// quiet-hours and deduplication guards, persists a notification record, and
// makes at most one provider call. Retries are a separate, explicit re-entry
// through the retry scheduler, never automatic within one call.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/infra/sender"
	"adhera-notify/internal/repository"
)

// ResultKind classifies what a dispatch call did.
type ResultKind string

const (
	// ResultSent means the provider accepted the message.
	ResultSent ResultKind = "sent"

	// ResultSuppressed means quiet hours applied: a record exists in the
	// suppressed state and no provider call was made. Distinct from failure;
	// callers must be able to tell "we chose not to send" from "we tried
	// and failed".
	ResultSuppressed ResultKind = "suppressed"

	// ResultSkipped means no record was created (channel opted out, or the
	// dedup guard found a recent record of the same type).
	ResultSkipped ResultKind = "skipped"

	// ResultFailed means the send was attempted and failed; the record is in
	// the failed state and eligible for the retry scheduler.
	ResultFailed ResultKind = "failed"
)

// Input is one dispatch request from a producer.
type Input struct {
	RecipientID string
	Channel     entity.Channel
	Type        string
	Title       string
	Body        string
	Priority    entity.Priority
	Metadata    map[string]any

	// MaxRetries overrides the default retry budget when positive.
	MaxRetries int

	// BypassPreferences skips the opt-in and quiet-hours checks. Producers
	// that must always reach the user (security alerts) set this explicitly;
	// it is never a default.
	BypassPreferences bool
}

// Result is the outcome of one dispatch call.
type Result struct {
	Kind   ResultKind
	Reason string

	// Record is nil when Kind == ResultSkipped.
	Record *entity.NotificationRecord
}

// Config tunes the dispatcher.
type Config struct {
	// MaxConcurrent bounds parallel provider sends in batch dispatch
	MaxConcurrent int

	// SendTimeout is the per-attempt provider timeout
	SendTimeout time.Duration

	// RetryBackoff is the delay written into next_retry_at on failure
	RetryBackoff time.Duration

	// DefaultMaxRetries applies when the input does not override it
	DefaultMaxRetries int
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     10,
		SendTimeout:       30 * time.Second,
		RetryBackoff:      10 * time.Minute,
		DefaultMaxRetries: entity.DefaultMaxRetries,
	}
}

// Service dispatches notifications to recipients.
type Service interface {
	// Dispatch processes one request end to end. It returns an error only for
	// caller mistakes (invalid input, unknown recipient, unconfigured
	// channel); provider failures come back as a ResultFailed with the failed
	// record attached.
	Dispatch(ctx context.Context, in Input) (Result, error)

	// DispatchBatch processes the inputs with bounded concurrency. One
	// recipient's failure never aborts the rest; results are returned in
	// input order.
	DispatchBatch(ctx context.Context, ins []Input) []Result

	// Deliver performs only the send-and-record half of a dispatch against an
	// existing record. The retry scheduler re-enters here so retries take the
	// identical provider path as first sends.
	Deliver(ctx context.Context, rec *entity.NotificationRecord) (Result, error)

	// Shutdown waits for in-flight sends to finish or the context to expire.
	Shutdown(ctx context.Context) error
}

type service struct {
	notifications repository.NotificationRepository
	preferences   repository.PreferenceRepository
	recipients    repository.RecipientRepository
	senders       sender.Registry
	cfg           Config

	workerPool     chan struct{}
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewService creates a dispatch service.
func NewService(
	notifications repository.NotificationRepository,
	preferences repository.PreferenceRepository,
	recipients repository.RecipientRepository,
	senders sender.Registry,
	cfg Config,
) Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = DefaultConfig().DefaultMaxRetries
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	return &service{
		notifications:  notifications,
		preferences:    preferences,
		recipients:     recipients,
		senders:        senders,
		cfg:            cfg,
		workerPool:     make(chan struct{}, cfg.MaxConcurrent),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}
}

// Dispatch implements Service.Dispatch.
func (s *service) Dispatch(ctx context.Context, in Input) (Result, error) {
	if err := s.shutdownCtx.Err(); err != nil {
		return Result{}, ErrShuttingDown
	}

	if err := entity.ValidateNotificationInput(in.RecipientID, in.Channel, in.Type, in.Title, in.Body); err != nil {
		return Result{}, err
	}
	snd, ok := s.senders.For(in.Channel)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrChannelNotConfigured, in.Channel)
	}

	recipient, err := s.recipients.Get(ctx, in.RecipientID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve recipient %s: %w", in.RecipientID, err)
	}

	pref, err := s.preferences.GetByRecipient(ctx, in.RecipientID, entity.CategoryFor(in.Type))
	if err != nil {
		return Result{}, fmt.Errorf("load preference for %s: %w", in.RecipientID, err)
	}

	if !in.BypassPreferences && !pref.ChannelEnabled(in.Channel) {
		slog.Debug("dispatch skipped: channel opted out",
			slog.String("recipient_id", in.RecipientID),
			slog.String("channel", string(in.Channel)))
		RecordResult(string(in.Channel), ResultSkipped)
		return Result{Kind: ResultSkipped, Reason: "channel opted out"}, nil
	}

	// Dedup guard: at most one record per (recipient, type) within the
	// type's lookback window. Suppressed records do not count.
	if window := entity.DedupWindow(in.Type); window > 0 {
		exists, err := s.notifications.ExistsRecent(ctx, in.RecipientID, in.Type, time.Now().Add(-window))
		if err != nil {
			return Result{}, fmt.Errorf("dedup check: %w", err)
		}
		if exists {
			slog.Debug("dispatch skipped: duplicate within dedup window",
				slog.String("recipient_id", in.RecipientID),
				slog.String("type", in.Type))
			RecordDedupSkip(in.Type)
			RecordResult(string(in.Channel), ResultSkipped)
			return Result{Kind: ResultSkipped, Reason: "duplicate within dedup window"}, nil
		}
	}

	rec := s.newRecord(in)
	if err := s.notifications.Create(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("create record: %w", err)
	}

	// Quiet hours: suppress instead of sending. Urgent notifications and
	// explicit bypasses always go out.
	if !in.BypassPreferences && in.Priority != entity.PriorityUrgent && pref.InQuietHours(time.Now()) {
		if err := s.notifications.MarkSuppressed(ctx, rec.ID); err != nil {
			return Result{}, fmt.Errorf("mark suppressed: %w", err)
		}
		rec.Status = entity.StatusSuppressed
		slog.Info("dispatch suppressed by quiet hours",
			slog.String("notification_id", rec.ID),
			slog.String("recipient_id", in.RecipientID),
			slog.String("channel", string(in.Channel)))
		RecordResult(string(in.Channel), ResultSuppressed)
		return Result{Kind: ResultSuppressed, Reason: "quiet hours", Record: rec}, nil
	}

	return s.deliver(ctx, snd, rec, recipient)
}

// Deliver implements Service.Deliver.
func (s *service) Deliver(ctx context.Context, rec *entity.NotificationRecord) (Result, error) {
	snd, ok := s.senders.For(rec.Channel)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrChannelNotConfigured, rec.Channel)
	}
	recipient, err := s.recipients.Get(ctx, rec.RecipientID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve recipient %s: %w", rec.RecipientID, err)
	}
	return s.deliver(ctx, snd, rec, recipient)
}

// deliver invokes the channel sender exactly once and applies the outcome to
// the record. Provider failures never propagate as errors.
func (s *service) deliver(ctx context.Context, snd sender.Sender, rec *entity.NotificationRecord, recipient *entity.Recipient) (Result, error) {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	IncrementActiveSends()
	start := time.Now()
	out := s.safeSend(sendCtx, snd, &sender.DeliveryRequest{Record: rec, Recipient: recipient})
	DecrementActiveSends()
	RecordSendDuration(string(rec.Channel), time.Since(start))

	s.deactivateStale(ctx, rec, out.StaleSubscriptionIDs)

	switch out.Status {
	case sender.Accepted:
		if err := s.notifications.MarkSent(ctx, rec.ID, out.ProviderMessageID); err != nil {
			return Result{}, fmt.Errorf("mark sent: %w", err)
		}
		rec.Status = entity.StatusSent
		rec.ProviderMessageID = out.ProviderMessageID
		slog.Info("notification sent",
			slog.String("notification_id", rec.ID),
			slog.String("channel", string(rec.Channel)),
			slog.String("provider_message_id", out.ProviderMessageID))
		RecordResult(string(rec.Channel), ResultSent)
		return Result{Kind: ResultSent, Record: rec}, nil

	default:
		// Rejected and TransientFailure both land in failed; the retry
		// scheduler re-attempts until the budget runs out.
		nextRetryAt := s.nextRetryAt(rec)
		if err := s.notifications.MarkFailed(ctx, rec.ID, out.Reason, nextRetryAt); err != nil {
			return Result{}, fmt.Errorf("mark failed: %w", err)
		}
		rec.Status = entity.StatusFailed
		rec.ErrorMessage = out.Reason
		rec.NextRetryAt = nextRetryAt
		slog.Warn("notification failed",
			slog.String("notification_id", rec.ID),
			slog.String("channel", string(rec.Channel)),
			slog.String("outcome", string(out.Status)),
			slog.String("reason", out.Reason))
		RecordResult(string(rec.Channel), ResultFailed)
		return Result{Kind: ResultFailed, Reason: out.Reason, Record: rec}, nil
	}
}

// safeSend shields the dispatcher from adapter panics; a panic becomes a
// transient failure.
func (s *service) safeSend(ctx context.Context, snd sender.Sender, req *sender.DeliveryRequest) (out sender.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in channel sender",
				slog.String("notification_id", req.Record.ID),
				slog.String("channel", string(snd.Name())),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out = sender.Transient(fmt.Sprintf("sender panic: %v", r))
		}
	}()
	return snd.Send(ctx, req)
}

// deactivateStale removes push subscriptions the provider reported gone.
// Failures are logged, not propagated; the next send will report them again.
func (s *service) deactivateStale(ctx context.Context, rec *entity.NotificationRecord, ids []string) {
	for _, id := range ids {
		if err := s.recipients.DeactivatePushSubscription(ctx, id); err != nil {
			slog.Warn("failed to deactivate stale push subscription",
				slog.String("notification_id", rec.ID),
				slog.String("subscription_id", id),
				slog.Any("error", err))
			continue
		}
		RecordStaleSubscription()
	}
}

// nextRetryAt computes the retry time written on failure, or nil when the
// record has no budget left.
func (s *service) nextRetryAt(rec *entity.NotificationRecord) *time.Time {
	if rec.RetryCount >= rec.MaxRetries {
		return nil
	}
	t := time.Now().Add(s.cfg.RetryBackoff)
	return &t
}

func (s *service) newRecord(in Input) *entity.NotificationRecord {
	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}
	maxRetries := in.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.DefaultMaxRetries
	}
	return &entity.NotificationRecord{
		ID:          uuid.New().String(),
		RecipientID: in.RecipientID,
		Channel:     in.Channel,
		Type:        in.Type,
		Title:       in.Title,
		Body:        in.Body,
		Priority:    priority,
		Status:      entity.StatusPending,
		MaxRetries:  maxRetries,
		Metadata:    in.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
}

// DispatchBatch implements Service.DispatchBatch.
func (s *service) DispatchBatch(ctx context.Context, ins []Input) []Result {
	results := make([]Result, len(ins))
	var batch sync.WaitGroup

	for i := range ins {
		i := i

		select {
		case s.workerPool <- struct{}{}:
		case <-ctx.Done():
			results[i] = Result{Kind: ResultSkipped, Reason: "batch canceled"}
			continue
		case <-s.shutdownCtx.Done():
			results[i] = Result{Kind: ResultSkipped, Reason: "shutting down"}
			continue
		}

		batch.Add(1)
		s.wg.Add(1)
		go func() {
			defer batch.Done()
			defer s.wg.Done()
			defer func() { <-s.workerPool }()

			res, err := s.Dispatch(ctx, ins[i])
			if err != nil {
				// Per-recipient isolation: record the error, keep going.
				slog.Warn("batch dispatch entry failed",
					slog.String("recipient_id", ins[i].RecipientID),
					slog.String("channel", string(ins[i].Channel)),
					slog.Any("error", err))
				res = Result{Kind: ResultSkipped, Reason: err.Error()}
			}
			results[i] = res
		}()
	}

	batch.Wait()
	return results
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("shutting down dispatch service")
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("dispatch service shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("dispatch service shutdown timeout")
		return ctx.Err()
	}
}
