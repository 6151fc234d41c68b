// Package scheduler wires up the cron job that periodically runs discovery
// for the configured searches.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/autoapply-service/internal/orchestrator"
)

// Discoverer runs one search-only pass. *orchestrator.Orchestrator
// implements it.
type Discoverer interface {
	Discover(ctx context.Context, req orchestrator.DiscoverRequest) (orchestrator.DiscoveryReport, error)
}

// Source lists the searches to run on a cycle. It is called every cycle so
// newly stored resume keywords are picked up without a restart.
type Source func(ctx context.Context) []orchestrator.DiscoverRequest

// Summary describes one discovery cycle.
type Summary struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Searches   int       `json:"searches"`
	Added      int       `json:"added"`
	Failures   []string  `json:"failures,omitempty"`
}

// Scheduler wraps robfig/cron and manages the discovery loop.
type Scheduler struct {
	cron   *cron.Cron
	disc   Discoverer
	source Source
	hours  int
	spec   string // cron spec, e.g. "@every 6h"
	log    *slog.Logger
	now    func() time.Time

	// running serialises cycles: the browser session is shared.
	running sync.Mutex
	// initial tracks the cycle Start runs outside cron.
	initial sync.WaitGroup

	mu   sync.Mutex
	last *Summary
}

// New creates a Scheduler that fires every intervalHours hours.
func New(disc Discoverer, source Source, intervalHours int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		disc:   disc,
		source: source,
		hours:  intervalHours,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		log:    logger,
		now:    time.Now,
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so the discovered set is fresh without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.hours < 1 {
		return fmt.Errorf("scheduler: interval must be a positive number of hours, got %d", s.hours)
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler: cron started", "spec", s.spec)

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.RunOnce(ctx)
	}()

	return nil
}

// Stop shuts the scheduler down and waits for running cycles to finish,
// including the one Start ran immediately.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	s.log.Info("scheduler: cron stopped")
}

// RunOnce runs every search from the source, one after another. A cycle
// that starts while another is still running is skipped and reports false.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, bool) {
	if !s.running.TryLock() {
		s.log.Warn("scheduler: previous cycle still running, skipping")
		return Summary{}, false
	}
	defer s.running.Unlock()

	sum := Summary{StartedAt: s.now().UTC()}
	reqs := s.source(ctx)
	if len(reqs) == 0 {
		s.log.Info("scheduler: no searches configured, nothing to discover")
	}

	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		sum.Searches++
		rep, err := s.disc.Discover(ctx, req)
		if err != nil {
			s.log.Warn("scheduler: discovery failed", "keyword", req.Keyword, "err", err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", req.Keyword, err))
			continue
		}
		sum.Added += rep.Added()
		for _, p := range rep.Platforms {
			if p.Err != "" {
				sum.Failures = append(sum.Failures, fmt.Sprintf("%s/%s: %s", req.Keyword, p.Platform, p.Err))
			}
		}
	}
	sum.FinishedAt = s.now().UTC()
	s.log.Info("scheduler: cycle done", "searches", sum.Searches, "added", sum.Added, "failures", len(sum.Failures))

	s.mu.Lock()
	cp := sum
	s.last = &cp
	s.mu.Unlock()
	return sum, true
}

// Last returns the most recent cycle summary.
func (s *Scheduler) Last() (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Summary{}, false
	}
	return *s.last, true
}

// KeywordSearches builds one request per distinct keyword across the stored
// resume keyword lists.
func KeywordSearches(byResume map[string][]string, location string, platforms []string, limit int) []orchestrator.DiscoverRequest {
	seen := map[string]bool{}
	var out []orchestrator.DiscoverRequest
	for _, name := range sortedKeys(byResume) {
		for _, kw := range byResume[name] {
			kw = strings.TrimSpace(kw)
			key := strings.ToLower(kw)
			if kw == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, orchestrator.DiscoverRequest{
				Keyword:   kw,
				Location:  location,
				Platforms: platforms,
				Limit:     limit,
			})
		}
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
