// Package web is the browser-driven platform adapter. Everything that
// differs between platforms lives in a locator.Table.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"jobmate/autoapply-service/internal/applyflow"
	"jobmate/autoapply-service/internal/browser"
	"jobmate/autoapply-service/internal/locator"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/richtext"
	"jobmate/autoapply-service/internal/scraper"
)

// Options tunes an Adapter.
type Options struct {
	// Settle waits for asynchronous content after navigation and scrolls.
	// Default: browser.Pause with 1s base and 1.5s jitter.
	Settle func(ctx context.Context)
	Now    func() time.Time
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Settle == nil {
		o.Settle = func(ctx context.Context) { browser.Pause(ctx, time.Second, 1500*time.Millisecond) }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Adapter scrapes and applies on one platform through the shared session.
type Adapter struct {
	table   locator.Table
	session browser.Session
	machine *applyflow.Machine
	opts    Options
	log     *slog.Logger
}

var _ scraper.Adapter = (*Adapter)(nil)

// New creates an adapter for table. machine may be nil for search-only use;
// Apply then reports a fault.
func New(table locator.Table, session browser.Session, machine *applyflow.Machine, opts Options) *Adapter {
	opts.defaults()
	return &Adapter{
		table:   table,
		session: session,
		machine: machine,
		opts:    opts,
		log:     opts.Logger.With("platform", table.Platform),
	}
}

func (a *Adapter) Platform() string { return a.table.Platform }

// Search collects result cards, scrolling the results list until the limit is
// reached, the scroll budget is spent, or a scroll brings no new posting.
// Links are deduplicated within the call.
func (a *Adapter) Search(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	page, err := a.session.Page(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.table.Platform, err)
	}
	target := a.table.SearchPage(q.Keyword, q.Location, q.Offset, q.EasyApplyOnly)
	if err := page.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("%s search: %w", a.table.Platform, err)
	}
	a.opts.Settle(ctx)

	base, _ := url.Parse(target)
	s := a.table.Search
	seen := map[string]bool{}
	var out []model.JobRecord

	for scroll := 0; ; scroll++ {
		cards, err := s.Card.FindAll(ctx, page)
		if err != nil {
			a.log.Debug("web: no result cards", "scroll", scroll, "err", err)
		}

		added := 0
		for _, card := range cards {
			rec, ok := a.parseCard(ctx, card, base, q)
			if !ok {
				continue
			}
			key := model.NormalizeLink(rec.Link)
			if seen[key] {
				continue
			}
			seen[key] = true
			added++
			out = append(out, rec)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}

		if added == 0 {
			a.log.Debug("web: no new postings, stopping", "scroll", scroll, "found", len(out))
			break
		}
		if scroll >= s.MaxScrolls || ctx.Err() != nil {
			break
		}
		if err := page.Scroll(ctx, s.ScrollContainer); err != nil {
			a.log.Debug("web: scroll failed", "err", err)
			break
		}
		a.opts.Settle(ctx)
	}

	a.log.Info("web: search done", "keyword", q.Keyword, "location", q.Location, "found", len(out))
	return out, nil
}

func (a *Adapter) parseCard(ctx context.Context, card browser.Element, base *url.URL, q model.SearchQuery) (model.JobRecord, bool) {
	s := a.table.Search
	title := s.Title.Text(ctx, card)
	if title == "" {
		return model.JobRecord{}, false
	}
	linkEl, err := s.Link.Find(ctx, card)
	if err != nil {
		return model.JobRecord{}, false
	}
	href, err := linkEl.Attr(ctx, s.LinkAttr)
	if err != nil || strings.TrimSpace(href) == "" {
		return model.JobRecord{}, false
	}

	now := a.opts.Now().UTC()
	return model.JobRecord{
		Title:     title,
		Company:   s.Company.Text(ctx, card),
		Location:  s.Location.Text(ctx, card),
		Link:      model.NormalizeLink(resolve(base, href)),
		Platform:  a.table.Platform,
		EasyApply: (q.EasyApplyOnly && a.table.EasyApplyFilter != "") || s.EasyApply.Exists(ctx, card),
		Language:  model.LanguageUnknown,
		Keyword:   q.Keyword,
		CreatedAt: now,
		UpdatedAt: now,
	}, true
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// FetchDetails opens a posting and extracts its description as Markdown,
// the description's language and the easy-apply flag. A missing description
// is not an error.
func (a *Adapter) FetchDetails(ctx context.Context, link string) (model.JobDetails, error) {
	d := model.JobDetails{Language: model.LanguageUnknown}

	page, err := a.open(ctx, link)
	if err != nil {
		return d, err
	}
	d.EasyApply = a.table.Details.EasyApply.Exists(ctx, page)

	el, err := a.table.Details.Description.Find(ctx, page)
	if err != nil {
		a.log.Debug("web: no description", "link", link, "err", err)
		return d, nil
	}
	if html, err := el.HTML(ctx); err == nil {
		md, err := richtext.FromHTML(html)
		if err != nil {
			a.log.Warn("web: description conversion failed", "link", link, "err", err)
		}
		d.RichDescription = md
	}
	text, _ := el.Text(ctx)
	if strings.TrimSpace(text) == "" {
		text = d.RichDescription
	}
	d.Language = richtext.DetectLanguage(text)
	return d, nil
}

// IsEasyApply reports whether the posting offers an in-site application.
func (a *Adapter) IsEasyApply(ctx context.Context, link string) (bool, error) {
	page, err := a.open(ctx, link)
	if err != nil {
		return false, err
	}
	return a.table.Details.EasyApply.Exists(ctx, page) || a.table.Apply.Trigger.Exists(ctx, page), nil
}

// Apply runs the apply state machine on the posting.
func (a *Adapter) Apply(ctx context.Context, link string, opts scraper.ApplyOptions) model.ApplyResult {
	if a.machine == nil {
		return model.ApplyResult{Message: a.table.Platform + ": applying is not enabled", Outcome: model.OutcomeFault}
	}
	page, err := a.session.Page(ctx)
	if err != nil {
		return model.ApplyResult{Message: "browser unavailable: " + err.Error(), Outcome: model.OutcomeFault}
	}
	job := model.JobRecord{Title: opts.Title, Company: opts.Company, Link: link, Platform: a.table.Platform}
	return a.machine.Apply(ctx, page, a.table.Apply, job).ApplyResult
}

func (a *Adapter) open(ctx context.Context, link string) (browser.Page, error) {
	page, err := a.session.Page(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.table.Platform, err)
	}
	if err := page.Navigate(ctx, link); err != nil {
		return nil, fmt.Errorf("%s: %w", a.table.Platform, err)
	}
	a.opts.Settle(ctx)
	return page, nil
}
