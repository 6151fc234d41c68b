// Package orchestrator runs the search-only and live-apply workflows over the
// registered platform adapters, one platform at a time.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/reconcile"
	"jobmate/autoapply-service/internal/scraper"
)

// Store is the slice of the reconciliation engine the workflows need.
type Store interface {
	Exclusions(ctx context.Context) reconcile.Exclusions
	Blacklist(ctx context.Context) model.Blacklist
	SaveDiscovered(ctx context.Context, records []model.JobRecord, appendMode bool) (reconcile.SaveReport, error)
	MarkApplied(ctx context.Context, job model.JobRecord, status kanban.Status, conversation []model.QA) (model.AppliedRecord, error)
}

// UnknownSource reports the questions nobody could answer during the run.
// *answers.Engine implements it.
type UnknownSource interface {
	Unknowns() []model.UnknownQuestion
}

// runResetter is implemented by sources that keep a per-run list.
type runResetter interface {
	ResetRun()
}

// Orchestrator owns no browser: adapters share the session they were built
// with, and the workflows call them sequentially.
type Orchestrator struct {
	registry *scraper.Registry
	store    Store
	unknowns UnknownSource
	pub      events.Publisher
	log      *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	lastRun       *Result
	lastDiscovery *DiscoveryReport
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets where run events go. Default: events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.pub = p
		}
	}
}

// WithUnknowns sets the source of the run's unknown questions.
func WithUnknowns(u UnknownSource) Option {
	return func(o *Orchestrator) { o.unknowns = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(registry *scraper.Registry, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		store:    store,
		pub:      events.Nop{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LastRun returns the most recent live-apply result.
func (o *Orchestrator) LastRun() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastRun == nil {
		return Result{}, false
	}
	return *o.lastRun, true
}

// LastDiscovery returns the most recent search-only report.
func (o *Orchestrator) LastDiscovery() (DiscoveryReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastDiscovery == nil {
		return DiscoveryReport{}, false
	}
	return *o.lastDiscovery, true
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = o.now().UTC()
	}
	if err := o.pub.Publish(ctx, e); err != nil {
		o.log.Warn("orchestrator: publish event failed", "type", e.Type, "err", err)
	}
}

func newRunID() string { return uuid.NewString() }

// safeApply calls the adapter and turns a panic into a fault result, so one
// posting never aborts the batch.
func safeApply(ctx context.Context, a scraper.Adapter, job model.JobRecord) (res model.ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.ApplyResult{Message: fmt.Sprintf("automation fault: %v", r), Outcome: model.OutcomeFault}
		}
	}()
	return a.Apply(ctx, job.Link, scraper.ApplyOptions{Title: job.Title, Company: job.Company})
}
