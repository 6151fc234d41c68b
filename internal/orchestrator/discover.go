package orchestrator

import (
	"context"
	"time"

	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/reconcile"
)

// DiscoverRequest is a search-only run over one or more platforms.
type DiscoverRequest struct {
	Keyword  string
	Location string
	// Platforms are adapter names; empty or "All" means every registered one.
	Platforms []string
	Limit     int
	// EasyApplyOnly asks the adapters for easy-apply postings only.
	EasyApplyOnly bool
	// Details fetches each posting's description after the search.
	Details bool
}

// PlatformReport is the outcome of one platform's search.
type PlatformReport struct {
	Platform string               `json:"platform"`
	Found    int                  `json:"found"`
	Saved    reconcile.SaveReport `json:"saved"`
	Err      string               `json:"error,omitempty"`
}

// DiscoveryReport aggregates a search-only run.
type DiscoveryReport struct {
	RunID      string           `json:"runId"`
	Keyword    string           `json:"keyword"`
	Location   string           `json:"location,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Platforms  []PlatformReport `json:"platforms"`
}

// Failed reports whether any platform failed.
func (r DiscoveryReport) Failed() bool {
	for _, p := range r.Platforms {
		if p.Err != "" {
			return true
		}
	}
	return false
}

// Added is the number of new records across platforms.
func (r DiscoveryReport) Added() int {
	n := 0
	for _, p := range r.Platforms {
		n += p.Saved.Added
	}
	return n
}

// Discover searches the requested platforms one after another and appends
// the results to the discovered set. A failing platform is reported and the
// others still run; whatever it returned before failing is still saved. The
// error is non-nil only for an unknown platform name.
func (o *Orchestrator) Discover(ctx context.Context, req DiscoverRequest) (DiscoveryReport, error) {
	adapters, err := o.registry.Resolve(req.Platforms)
	if err != nil {
		return DiscoveryReport{}, err
	}

	rep := DiscoveryReport{
		RunID:     newRunID(),
		Keyword:   req.Keyword,
		Location:  req.Location,
		StartedAt: o.now().UTC(),
	}
	log := o.log.With("run_id", rep.RunID, "keyword", req.Keyword)

	for _, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		pr := PlatformReport{Platform: a.Platform()}
		recs, err := a.Search(ctx, model.SearchQuery{
			Keyword:       req.Keyword,
			Location:      req.Location,
			Limit:         req.Limit,
			EasyApplyOnly: req.EasyApplyOnly,
		})
		if err != nil {
			log.Warn("orchestrator: platform search failed", "platform", pr.Platform, "err", err)
			pr.Err = err.Error()
		}
		pr.Found = len(recs)

		if req.Details {
			for i := range recs {
				recs[i] = o.enrich(ctx, a, recs[i])
			}
		}
		if len(recs) > 0 {
			saved, err := o.store.SaveDiscovered(ctx, recs, true)
			if err != nil {
				log.Warn("orchestrator: save discovered failed", "platform", pr.Platform, "err", err)
				if pr.Err == "" {
					pr.Err = "save: " + err.Error()
				}
			}
			pr.Saved = saved
		}
		log.Info("orchestrator: platform searched", "platform", pr.Platform, "found", pr.Found, "added", pr.Saved.Added)
		rep.Platforms = append(rep.Platforms, pr)
	}
	rep.FinishedAt = o.now().UTC()

	o.publish(ctx, events.Event{Type: events.TypeDiscoveryCompleted, RunID: rep.RunID, Data: rep})

	o.mu.Lock()
	cp := rep
	o.lastDiscovery = &cp
	o.mu.Unlock()
	return rep, nil
}

type detailer interface {
	FetchDetails(ctx context.Context, link string) (model.JobDetails, error)
}

func (o *Orchestrator) enrich(ctx context.Context, a detailer, j model.JobRecord) model.JobRecord {
	if j.Link == "" {
		return j
	}
	d, err := a.FetchDetails(ctx, j.Link)
	if err != nil {
		o.log.Debug("orchestrator: fetch details failed", "link", j.Link, "err", err)
		return j
	}
	if d.RichDescription != "" {
		j.RichDescription = d.RichDescription
	}
	if d.Language != "" && d.Language != model.LanguageUnknown {
		j.Language = d.Language
	}
	j.EasyApply = j.EasyApply || d.EasyApply
	return j
}
