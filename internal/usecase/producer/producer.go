// Package producer implements the scheduled jobs that decide who gets
// notified about what. Producers compute candidate notifications from the
// adherence data; the dispatcher owns delivery mechanics, preferences and
// deduplication.
//
// Producers stay thin on purpose: overlapping scan windows are expected and
// safe because the dispatcher's dedup guard enforces at-most-one record per
// (recipient, type) within the type's lookback window.
package producer

import (
	"context"

	"adhera-notify/internal/usecase/dispatch"
)

// Candidate is one notification a producer wants dispatched.
type Candidate = dispatch.Input

// Producer computes candidate notifications on a schedule.
type Producer interface {
	// Name identifies the producer in logs and metrics.
	Name() string

	// Schedule returns the producer's cron expression.
	Schedule() string

	// Collect computes the candidate set for this run. Collect must be
	// side-effect free; dedup and preference filtering happen downstream.
	Collect(ctx context.Context) ([]Candidate, error)
}

// funcProducer adapts a collect function into a Producer.
type funcProducer struct {
	name     string
	schedule string
	collect  func(ctx context.Context) ([]Candidate, error)
}

// New creates a Producer from a name, cron schedule and collect function.
func New(name, schedule string, collect func(ctx context.Context) ([]Candidate, error)) Producer {
	return &funcProducer{name: name, schedule: schedule, collect: collect}
}

func (p *funcProducer) Name() string     { return p.name }
func (p *funcProducer) Schedule() string { return p.schedule }
func (p *funcProducer) Collect(ctx context.Context) ([]Candidate, error) {
	return p.collect(ctx)
}
