// Package scraper defines the platform adapter contract and the registry the
// commands pick adapters from.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobmate/autoapply-service/internal/model"
)

// Adapter is one job platform.
//
// Search and FetchDetails return whatever they could extract when locators
// fail part-way; an error means nothing usable came back. Apply never
// returns an error: failures are reported through model.ApplyResult.
// Adapters drive the shared browser session and must not assume they own it.
type Adapter interface {
	Platform() string
	Search(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error)
	FetchDetails(ctx context.Context, link string) (model.JobDetails, error)
	IsEasyApply(ctx context.Context, link string) (bool, error)
	Apply(ctx context.Context, link string, opts ApplyOptions) model.ApplyResult
}

// ApplyOptions names the posting an application is for, so answers and
// logs can refer to it.
type ApplyOptions struct {
	Title   string
	Company string
}

// AllPlatforms selects every registered adapter.
const AllPlatforms = "All"

// Registry holds adapters in registration order.
type Registry struct {
	byName map[string]Adapter
	order  []string
}

// NewRegistry registers adapters in order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byName: map[string]Adapter{}}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing an adapter with the same platform name.
func (r *Registry) Register(a Adapter) {
	key := strings.ToLower(a.Platform())
	if _, ok := r.byName[key]; !ok {
		r.order = append(r.order, key)
	}
	r.byName[key] = a
}

// Get returns the adapter for platform, case-insensitively.
func (r *Registry) Get(platform string) (Adapter, bool) {
	a, ok := r.byName[strings.ToLower(strings.TrimSpace(platform))]
	return a, ok
}

// Names returns the registered platform names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byName[k].Platform())
	}
	return out
}

// Resolve maps platform names to adapters. An empty list or "All" selects
// every adapter. Unknown names are an error naming all of them.
func (r *Registry) Resolve(names []string) ([]Adapter, error) {
	all := len(names) == 0
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), AllPlatforms) {
			all = true
		}
	}
	if all {
		out := make([]Adapter, 0, len(r.order))
		for _, k := range r.order {
			out = append(out, r.byName[k])
		}
		return out, nil
	}

	var (
		out     []Adapter
		unknown []string
		seen    = map[string]bool{}
	)
	for _, n := range names {
		a, ok := r.Get(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		key := strings.ToLower(a.Platform())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown platform(s) %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	return out, nil
}

// DedupeByLink keeps the first record per normalised link. Records without
// a link are deduplicated on title and company instead.
func DedupeByLink(records []model.JobRecord) []model.JobRecord {
	out := make([]model.JobRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := model.NormalizeLink(r.Link)
		if key == "" {
			key = "id:" + r.DedupKey()
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
