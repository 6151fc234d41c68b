package orchestrator

import (
	"context"
	"time"

	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/reconcile"
)

// Target is one (role, keyword, location, platform) search to apply from.
type Target struct {
	Role     string `json:"role,omitempty"`
	Keyword  string `json:"keyword"`
	Location string `json:"location,omitempty"`
	Platform string `json:"platform"`
}

// Options bound a live-apply run.
type Options struct {
	// TargetCount stops the run after that many submitted applications.
	// Zero means no target.
	TargetCount int
	// MaxPages caps search pages per target. Default: 5.
	MaxPages int
	// PageSize is the per-page search limit. Default: 25.
	PageSize int
}

func (o *Options) defaults() {
	if o.MaxPages <= 0 {
		o.MaxPages = 5
	}
	if o.PageSize <= 0 {
		o.PageSize = 25
	}
}

// Stop reasons.
const (
	StopCompleted     = "completed"
	StopTargetReached = "target_reached"
	StopSessionLimit  = "session_limit"
	StopCancelled     = "cancelled"
)

// Entry is one posting the run applied to, skipped or failed on.
type Entry struct {
	JobID    string `json:"jobId"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Link     string `json:"link,omitempty"`
	Platform string `json:"platform"`
	Reason   string `json:"reason,omitempty"`
}

func entry(j model.JobRecord, platform, reason string) Entry {
	return Entry{JobID: j.ID(), Title: j.Title, Company: j.Company, Link: j.Link, Platform: platform, Reason: reason}
}

// Result aggregates a live-apply run.
type Result struct {
	RunID      string                  `json:"runId"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt"`
	Applied    []Entry                 `json:"applied"`
	Skipped    []Entry                 `json:"skipped"`
	Errors     []Entry                 `json:"errors"`
	Checked    int                     `json:"checked"`
	Unknown    []model.UnknownQuestion `json:"unknownQuestions"`
	StopReason string                  `json:"stopReason"`
}

type run struct {
	o       *Orchestrator
	opts    Options
	res     *Result
	excl    reconcile.Exclusions
	bl      model.Blacklist
	seen    map[string]bool
	stopped bool
}

// LiveApply searches each target with the easy-apply filter and applies to
// every candidate that is not already applied or parked, blacklisted, or
// already seen in this run. It stops at the target count, at the session
// application cap, or when every target ran out of pages.
func (o *Orchestrator) LiveApply(ctx context.Context, targets []Target, opts Options) Result {
	opts.defaults()
	res := &Result{RunID: newRunID(), StartedAt: o.now().UTC(), StopReason: StopCompleted}
	r := &run{
		o:    o,
		opts: opts,
		res:  res,
		excl: o.store.Exclusions(ctx),
		bl:   o.store.Blacklist(ctx),
		seen: map[string]bool{},
	}
	if rr, ok := o.unknowns.(runResetter); ok {
		rr.ResetRun()
	}
	log := o.log.With("run_id", res.RunID)
	log.Info("orchestrator: live apply started", "targets", len(targets), "target_count", opts.TargetCount)

	for _, t := range targets {
		if r.stopped {
			break
		}
		r.target(ctx, t)
	}

	if o.unknowns != nil {
		res.Unknown = o.unknowns.Unknowns()
	}
	for _, u := range res.Unknown {
		o.publish(ctx, events.Event{Type: events.TypeUnknownQuestion, RunID: res.RunID, Data: u})
	}
	res.FinishedAt = o.now().UTC()

	log.Info("orchestrator: live apply done",
		"applied", len(res.Applied), "skipped", len(res.Skipped), "errors", len(res.Errors),
		"checked", res.Checked, "unknown", len(res.Unknown), "stop", res.StopReason)

	o.mu.Lock()
	cp := *res
	o.lastRun = &cp
	o.mu.Unlock()
	return *res
}

func (r *run) target(ctx context.Context, t Target) {
	o := r.o
	adapter, ok := o.registry.Get(t.Platform)
	if !ok {
		r.res.Errors = append(r.res.Errors, Entry{Platform: t.Platform, Reason: "unknown platform"})
		return
	}
	platform := adapter.Platform()
	log := o.log.With("run_id", r.res.RunID, "platform", platform, "keyword", t.Keyword)

	for page := 0; page < r.opts.MaxPages; page++ {
		if ctx.Err() != nil {
			r.stop(StopCancelled)
			return
		}
		recs, err := adapter.Search(ctx, model.SearchQuery{
			Keyword:       t.Keyword,
			Location:      t.Location,
			Limit:         r.opts.PageSize,
			EasyApplyOnly: true,
			Offset:        page * r.opts.PageSize,
		})
		if err != nil {
			log.Warn("orchestrator: search failed", "page", page, "err", err)
			r.res.Errors = append(r.res.Errors, Entry{Platform: platform, Reason: "search: " + err.Error()})
		}

		fresh := 0
		for _, job := range recs {
			if r.seen[job.DedupKey()] {
				continue
			}
			r.seen[job.DedupKey()] = true
			fresh++
			if job.Keyword == "" {
				job.Keyword = t.Keyword
			}
			r.candidate(ctx, platform, job)
			if r.stopped {
				return
			}
		}
		if err != nil || fresh == 0 {
			return
		}
	}
	log.Debug("orchestrator: page ceiling reached", "pages", r.opts.MaxPages)
}

func (r *run) candidate(ctx context.Context, platform string, job model.JobRecord) {
	o := r.o
	r.res.Checked++

	if why, bad := r.excl.Contains(job); bad {
		r.res.Skipped = append(r.res.Skipped, entry(job, platform, "already "+why))
		return
	}
	if rule, bad := reconcile.Rejects(r.bl, job.Title, job.Company); bad {
		r.res.Skipped = append(r.res.Skipped, entry(job, platform, "blacklisted "+rule))
		return
	}

	adapter, _ := o.registry.Get(platform)
	res := safeApply(ctx, adapter, job)
	job.EasyApply = job.EasyApply || res.WasEasyApply

	switch res.Outcome {
	case model.OutcomeSubmitted:
		r.record(ctx, job, res)
		r.res.Applied = append(r.res.Applied, entry(job, platform, res.Message))
		o.publish(ctx, events.Event{Type: events.TypeJobApplied, RunID: r.res.RunID, JobID: job.ID(), Data: job})
		if r.opts.TargetCount > 0 && len(r.res.Applied) >= r.opts.TargetCount {
			r.stop(StopTargetReached)
		}
	case model.OutcomeAlreadyApplied:
		r.record(ctx, job, res)
		r.res.Skipped = append(r.res.Skipped, entry(job, platform, "already applied on "+platform))
	case model.OutcomeLimitReached:
		r.res.Skipped = append(r.res.Skipped, entry(job, platform, res.Message))
		r.stop(StopSessionLimit)
	case model.OutcomeNotEasyApply, model.OutcomeManualReview:
		r.res.Skipped = append(r.res.Skipped, entry(job, platform, res.Message))
	default:
		r.res.Errors = append(r.res.Errors, entry(job, platform, res.Message))
	}
}

// record persists the application and excludes it from the rest of the run.
func (r *run) record(ctx context.Context, job model.JobRecord, res model.ApplyResult) {
	if _, err := r.o.store.MarkApplied(ctx, job, kanban.StatusApplied, res.Conversation); err != nil {
		r.o.log.Warn("orchestrator: persist applied job failed", "job_id", job.ID(), "err", err)
	}
	r.excl.Add(job, "applied")
}

func (r *run) stop(reason string) {
	r.stopped = true
	r.res.StopReason = reason
}
