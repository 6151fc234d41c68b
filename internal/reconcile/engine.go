// Package reconcile filters, merges and persists job records. It is the only
// writer of the persisted documents; adapters and the apply state machine
// work on in-memory copies.
//
// Every operation reads the documents it needs in full, mutates them in
// memory and writes them back in full. There is no cross-process locking:
// one process owns a data set at a time.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"jobmate/autoapply-service/internal/db"
	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/model"
)

// Engine owns the discovered, applied, parked, blacklist, answer and
// resume-keyword documents.
type Engine struct {
	docs db.Backend
	now  func() time.Time
	log  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for timestamps (for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine writing through docs.
func New(docs db.Backend, opts ...Option) *Engine {
	e := &Engine{docs: docs, now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SaveReport counts what SaveDiscovered did with a batch.
type SaveReport struct {
	Received    int `json:"received"`
	Added       int `json:"added"`
	Merged      int `json:"merged"`
	Blacklisted int `json:"blacklisted"`
	Excluded    int `json:"excluded"`
	Total       int `json:"total"`
}

// ─── Loaders ─────────────────────────────────────────────────────────────────

// Discovered returns the discovered set in stored order.
func (e *Engine) Discovered(ctx context.Context) []model.JobRecord {
	return db.Load(ctx, e.docs, db.DocDiscovered, []model.JobRecord{})
}

// Applied returns the applied set keyed by job_id.
func (e *Engine) Applied(ctx context.Context) map[string]model.AppliedRecord {
	m := db.Load(ctx, e.docs, db.DocApplied, map[string]model.AppliedRecord{})
	if m == nil {
		m = map[string]model.AppliedRecord{}
	}
	return m
}

// Parked returns the parked set in park order.
func (e *Engine) Parked(ctx context.Context) []model.ParkedRecord {
	return db.Load(ctx, e.docs, db.DocParked, []model.ParkedRecord{})
}

// Blacklist returns the stored blacklist.
func (e *Engine) Blacklist(ctx context.Context) model.Blacklist {
	return db.Load(ctx, e.docs, db.DocBlacklist, model.Blacklist{})
}

// SaveBlacklist replaces the blacklist, trimming and deduplicating entries.
func (e *Engine) SaveBlacklist(ctx context.Context, bl model.Blacklist) error {
	bl.Companies = cleanList(bl.Companies)
	bl.Titles = cleanList(bl.Titles)
	bl.SafePhrases = cleanList(bl.SafePhrases)
	return db.Save(ctx, e.docs, db.DocBlacklist, bl)
}

// ─── Exclusions ──────────────────────────────────────────────────────────────

// Exclusions are the job_ids and links already applied to or parked.
type Exclusions struct {
	ids   map[string]string
	links map[string]string
}

// Contains reports whether the job is excluded and why.
func (x Exclusions) Contains(j model.JobRecord) (string, bool) {
	if why, ok := x.ids[j.ID()]; ok {
		return why, true
	}
	if j.Link == "" {
		return "", false
	}
	why, ok := x.links[model.NormalizeLink(j.Link)]
	return why, ok
}

// Add excludes a job for the rest of the caller's run.
func (x *Exclusions) Add(j model.JobRecord, why string) {
	if x.ids == nil {
		x.ids = map[string]string{}
		x.links = map[string]string{}
	}
	x.ids[j.ID()] = why
	if j.Link != "" {
		x.links[model.NormalizeLink(j.Link)] = why
	}
}

// Exclusions builds the applied/parked exclusion set.
func (e *Engine) Exclusions(ctx context.Context) Exclusions {
	return buildExclusions(e.Applied(ctx), e.Parked(ctx))
}

func buildExclusions(applied map[string]model.AppliedRecord, parked []model.ParkedRecord) Exclusions {
	x := Exclusions{ids: map[string]string{}, links: map[string]string{}}
	for id, rec := range applied {
		x.ids[id] = "applied"
		if rec.Job.Link != "" {
			x.links[model.NormalizeLink(rec.Job.Link)] = "applied"
		}
	}
	for _, p := range parked {
		x.ids[p.JobID] = "parked"
		if p.Link != "" {
			x.links[model.NormalizeLink(p.Link)] = "parked"
		}
	}
	return x
}

// ─── Discovered ──────────────────────────────────────────────────────────────

// SaveDiscovered filters a batch against the blacklist and the applied/parked
// sets, then either merges it into the discovered set by job_id (appendMode)
// or replaces the set wholesale.
//
// Merging keeps the longer description, lets a detected language replace the
// "unknown" placeholder, ORs the easy-apply flag and refreshes UpdatedAt.
func (e *Engine) SaveDiscovered(ctx context.Context, records []model.JobRecord, appendMode bool) (SaveReport, error) {
	rep := SaveReport{Received: len(records)}
	now := e.now().UTC()
	bl := e.Blacklist(ctx)
	excl := e.Exclusions(ctx)

	var base []model.JobRecord
	if appendMode {
		base = e.Discovered(ctx)
	}
	index := make(map[string]int, len(base)+len(records))
	for i, j := range base {
		index[j.ID()] = i
	}

	for _, j := range records {
		if why, bad := Rejects(bl, j.Title, j.Company); bad {
			rep.Blacklisted++
			e.log.Debug("discovered job blacklisted", "job_id", j.ID(), "rule", why)
			continue
		}
		if why, bad := excl.Contains(j); bad {
			rep.Excluded++
			e.log.Debug("discovered job excluded", "job_id", j.ID(), "reason", why)
			continue
		}

		if i, ok := index[j.ID()]; ok {
			base[i] = merge(base[i], j, now)
			rep.Merged++
			continue
		}

		if j.Language == "" {
			j.Language = model.LanguageUnknown
		}
		if j.CreatedAt.IsZero() {
			j.CreatedAt = now
		}
		j.UpdatedAt = now
		index[j.ID()] = len(base)
		base = append(base, j)
		rep.Added++
	}

	rep.Total = len(base)
	if err := db.Save(ctx, e.docs, db.DocDiscovered, base); err != nil {
		return rep, err
	}
	return rep, nil
}

func merge(old, in model.JobRecord, now time.Time) model.JobRecord {
	if len(in.RichDescription) > len(old.RichDescription) {
		old.RichDescription = in.RichDescription
	}
	if len(in.Description) > len(old.Description) {
		old.Description = in.Description
	}
	if in.Language != "" && in.Language != model.LanguageUnknown &&
		(old.Language == "" || old.Language == model.LanguageUnknown) {
		old.Language = in.Language
	}
	if old.Language == "" {
		old.Language = model.LanguageUnknown
	}
	old.EasyApply = old.EasyApply || in.EasyApply

	if old.Link == "" {
		old.Link = in.Link
	}
	if old.Location == "" {
		old.Location = in.Location
	}
	if old.Platform == "" {
		old.Platform = in.Platform
	}
	if old.Keyword == "" {
		old.Keyword = in.Keyword
	}
	if old.CreatedAt.IsZero() {
		old.CreatedAt = now
	}
	old.UpdatedAt = now
	return old
}

// Archive removes every discovered record whose job_id is in the applied set
// and returns how many were removed.
func (e *Engine) Archive(ctx context.Context) (int, error) {
	applied := e.Applied(ctx)
	discovered := e.Discovered(ctx)

	kept := discovered[:0]
	for _, j := range discovered {
		if _, ok := applied[j.ID()]; ok {
			continue
		}
		kept = append(kept, j)
	}
	removed := len(discovered) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := db.Save(ctx, e.docs, db.DocDiscovered, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ─── Parked ──────────────────────────────────────────────────────────────────

// Park defers a job: it appends a ParkedRecord and drops the matching
// discovered record. Parking an already parked job_id is a no-op and
// returns false.
func (e *Engine) Park(ctx context.Context, title, company string, data model.JobRecord) (bool, error) {
	id := model.JobID(title, company)
	parked := e.Parked(ctx)
	for _, p := range parked {
		if p.JobID == id {
			return false, nil
		}
	}

	parked = append(parked, model.ParkedRecord{
		JobID:    id,
		Title:    title,
		Company:  company,
		ParkedAt: e.now().UTC(),
		Link:     data.Link,
		Platform: data.Platform,
	})
	if err := db.Save(ctx, e.docs, db.DocParked, parked); err != nil {
		return false, err
	}

	if err := e.removeDiscovered(ctx, id); err != nil {
		return true, err
	}
	return true, nil
}

// Unpark removes a ParkedRecord so the job can be discovered again.
func (e *Engine) Unpark(ctx context.Context, jobID string) (bool, error) {
	parked := e.Parked(ctx)
	kept := parked[:0]
	for _, p := range parked {
		if p.JobID != jobID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(parked) {
		return false, nil
	}
	return true, db.Save(ctx, e.docs, db.DocParked, kept)
}

func (e *Engine) removeDiscovered(ctx context.Context, jobID string) error {
	discovered := e.Discovered(ctx)
	kept := discovered[:0]
	for _, j := range discovered {
		if j.ID() != jobID {
			kept = append(kept, j)
		}
	}
	if len(kept) == len(discovered) {
		return nil
	}
	return db.Save(ctx, e.docs, db.DocDiscovered, kept)
}

// ─── Applied ─────────────────────────────────────────────────────────────────

// MarkApplied records a successful (or manually marked) application with a
// snapshot of the job. An existing record keeps its CreatedAt and analysis.
func (e *Engine) MarkApplied(ctx context.Context, job model.JobRecord, status kanban.Status, conversation []model.QA) (model.AppliedRecord, error) {
	if status == "" {
		status = kanban.StatusApplied
	}
	now := e.now().UTC()
	applied := e.Applied(ctx)

	rec, ok := applied[job.ID()]
	if !ok {
		rec = model.AppliedRecord{JobID: job.ID(), CreatedAt: now}
	}
	rec.UpdatedAt = now
	rec.Job = job
	rec.Status = string(status)
	if len(conversation) > 0 {
		rec.Conversation = conversation
	}
	applied[rec.JobID] = rec

	if err := db.Save(ctx, e.docs, db.DocApplied, applied); err != nil {
		return rec, err
	}
	return rec, nil
}

// AppliedRecord returns one applied record.
func (e *Engine) AppliedRecord(ctx context.Context, jobID string) (model.AppliedRecord, bool) {
	rec, ok := e.Applied(ctx)[jobID]
	return rec, ok
}

// PutApplied stores rec as is.
func (e *Engine) PutApplied(ctx context.Context, rec model.AppliedRecord) error {
	applied := e.Applied(ctx)
	applied[rec.JobID] = rec
	return db.Save(ctx, e.docs, db.DocApplied, applied)
}

// DeleteApplied removes an applied record. Only an explicit user action
// calls this.
func (e *Engine) DeleteApplied(ctx context.Context, jobID string) (bool, error) {
	applied := e.Applied(ctx)
	if _, ok := applied[jobID]; !ok {
		return false, nil
	}
	delete(applied, jobID)
	return true, db.Save(ctx, e.docs, db.DocApplied, applied)
}

// AppliedList returns applied records, most recently updated first.
func (e *Engine) AppliedList(ctx context.Context) []model.AppliedRecord {
	applied := e.Applied(ctx)
	out := make([]model.AppliedRecord, 0, len(applied))
	for _, r := range applied {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// ─── Answers ─────────────────────────────────────────────────────────────────

// LoadAnswers returns the answer book, never with a nil map.
func (e *Engine) LoadAnswers(ctx context.Context) (model.AnswerBook, error) {
	book := db.Load(ctx, e.docs, db.DocAnswers, model.AnswerBook{})
	if book.Answers == nil {
		book.Answers = map[string]string{}
	}
	return book, nil
}

// SaveAnswers writes the answer book.
func (e *Engine) SaveAnswers(ctx context.Context, book model.AnswerBook) error {
	return db.Save(ctx, e.docs, db.DocAnswers, book)
}

// ClearUnknown empties the unknown-question log and returns how many entries
// were dropped.
func (e *Engine) ClearUnknown(ctx context.Context) (int, error) {
	book, _ := e.LoadAnswers(ctx)
	n := len(book.Unknown)
	if n == 0 {
		return 0, nil
	}
	book.Unknown = nil
	return n, e.SaveAnswers(ctx, book)
}

// ─── Resume keywords ─────────────────────────────────────────────────────────

// ResumeKeywords returns the keyword history: resume filename to keywords.
func (e *Engine) ResumeKeywords(ctx context.Context) map[string][]string {
	m := db.Load(ctx, e.docs, db.DocResumeKeywords, map[string][]string{})
	if m == nil {
		m = map[string][]string{}
	}
	return m
}

// SaveResumeKeywords stores the target keywords extracted for a resume.
func (e *Engine) SaveResumeKeywords(ctx context.Context, filename string, keywords []string) error {
	if filename == "" {
		return fmt.Errorf("resume filename is required")
	}
	m := e.ResumeKeywords(ctx)
	m[filename] = cleanList(keywords)
	return db.Save(ctx, e.docs, db.DocResumeKeywords, m)
}
