package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"adhera-notify/internal/usecase/dispatch"
)

// RunStats summarizes one producer run after dispatch.
type RunStats struct {
	Candidates int
	Sent       int
	Suppressed int
	Skipped    int
	Failed     int
}

// Runner schedules producers with cron and fans their candidates into the
// dispatcher.
type Runner struct {
	cron       *cron.Cron
	dispatcher dispatch.Service
	producers  []Producer
	runTimeout time.Duration
	chunkSize  int
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithRunTimeout bounds one producer run end to end.
func WithRunTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.runTimeout = d }
}

// WithChunkSize sets how many candidates go into one dispatch batch.
func WithChunkSize(n int) RunnerOption {
	return func(r *Runner) { r.chunkSize = n }
}

// NewRunner creates a Runner scheduling in the given location.
func NewRunner(dispatcher dispatch.Service, loc *time.Location, opts ...RunnerOption) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	r := &Runner{
		cron:       cron.New(cron.WithLocation(loc)),
		dispatcher: dispatcher,
		runTimeout: 5 * time.Minute,
		chunkSize:  100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a producer at its own schedule.
func (r *Runner) Add(p Producer) error {
	if _, err := r.cron.AddFunc(p.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.runTimeout)
		defer cancel()
		r.runProducer(ctx, p)
	}); err != nil {
		return fmt.Errorf("register producer %s: %w", p.Name(), err)
	}
	r.producers = append(r.producers, p)
	slog.Info("producer registered",
		slog.String("producer", p.Name()),
		slog.String("schedule", p.Schedule()))
	return nil
}

// AddJob registers an arbitrary periodic job (the retry scheduler rides the
// same cron instance).
func (r *Runner) AddJob(name, schedule string, job func(ctx context.Context)) error {
	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.runTimeout)
		defer cancel()
		job(ctx)
	}); err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	slog.Info("job registered",
		slog.String("job", name),
		slog.String("schedule", schedule))
	return nil
}

// Start begins the cron loop.
func (r *Runner) Start() {
	r.cron.Start()
	slog.Info("producer runner started", slog.Int("producers", len(r.producers)))
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		slog.Info("producer runner stopped")
		return nil
	case <-ctx.Done():
		slog.Warn("producer runner stop timeout")
		return ctx.Err()
	}
}

// RunProducer executes one producer immediately. Exposed for manual triggers.
func (r *Runner) RunProducer(ctx context.Context, p Producer) (RunStats, error) {
	return r.runProducer(ctx, p)
}

func (r *Runner) runProducer(ctx context.Context, p Producer) (RunStats, error) {
	start := time.Now()
	slog.Info("producer run started", slog.String("producer", p.Name()))

	candidates, err := p.Collect(ctx)
	if err != nil {
		slog.Error("producer collect failed",
			slog.String("producer", p.Name()),
			slog.Any("error", err))
		RecordRun(p.Name(), "failure", 0, time.Since(start))
		return RunStats{}, err
	}

	stats := RunStats{Candidates: len(candidates)}
	if len(candidates) > 0 {
		results := r.dispatchChunked(ctx, candidates)
		for _, res := range results {
			switch res.Kind {
			case dispatch.ResultSent:
				stats.Sent++
			case dispatch.ResultSuppressed:
				stats.Suppressed++
			case dispatch.ResultSkipped:
				stats.Skipped++
			case dispatch.ResultFailed:
				stats.Failed++
			}
		}
	}

	RecordRun(p.Name(), "success", stats.Candidates, time.Since(start))
	slog.Info("producer run complete",
		slog.String("producer", p.Name()),
		slog.Int("candidates", stats.Candidates),
		slog.Int("sent", stats.Sent),
		slog.Int("suppressed", stats.Suppressed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", time.Since(start)))
	return stats, nil
}

// dispatchChunked feeds candidates to the dispatcher in bounded batches.
// The dispatcher bounds provider concurrency; the errgroup here only bounds
// how many batches are in flight at once.
func (r *Runner) dispatchChunked(ctx context.Context, candidates []Candidate) []dispatch.Result {
	chunks := make([][]Candidate, 0, len(candidates)/r.chunkSize+1)
	for start := 0; start < len(candidates); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		chunks = append(chunks, candidates[start:end])
	}

	results := make([][]dispatch.Result, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results[i] = r.dispatcher.DispatchBatch(gctx, chunk)
			return nil
		})
	}
	// Workers never return errors; Wait only orders the writes.
	_ = g.Wait()

	flat := make([]dispatch.Result, 0, len(candidates))
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	return flat
}
