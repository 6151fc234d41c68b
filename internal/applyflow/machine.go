package applyflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jobmate/autoapply-service/internal/answers"
	"jobmate/autoapply-service/internal/browser"
	"jobmate/autoapply-service/internal/locator"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/textnorm"
)

// Answerer resolves form questions. *answers.Engine implements it.
type Answerer interface {
	Lookup(question string) (answers.Match, bool)
	ChooseOption(ctx context.Context, question string, options []string, job answers.JobContext) (answers.OptionChoice, bool)
	Capture(ctx context.Context, question string, job answers.JobContext, readField func(context.Context) (string, error)) (string, bool)
	RecordUnknown(ctx context.Context, question string, job answers.JobContext)
}

// Config bounds an attempt and the session.
type Config struct {
	// MaxSteps caps the fill/act/validate cycle. Default: 15.
	MaxSteps int
	// MaxApplications caps submitted applications per session. Default: 50.
	MaxApplications int
	// MaxValidationRetries is the number of consecutive failures on one
	// step before the attempt is declared stuck. Default: 3.
	MaxValidationRetries int
	// Unfollow unticks the "follow company" box before submitting.
	Unfollow bool
	// Settle waits for asynchronous page content after navigation and
	// clicks. Default: browser.Pause with 800ms base and 1.2s jitter.
	Settle func(ctx context.Context)
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 15
	}
	if c.MaxApplications <= 0 {
		c.MaxApplications = 50
	}
	if c.MaxValidationRetries <= 0 {
		c.MaxValidationRetries = 3
	}
	if c.Settle == nil {
		c.Settle = func(ctx context.Context) { browser.Pause(ctx, 800*time.Millisecond, 1200*time.Millisecond) }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Machine applies to postings on the session's page. One Machine serves a
// whole session so the application cap spans every platform.
type Machine struct {
	cfg     Config
	answers Answerer
	log     *slog.Logger

	mu        sync.Mutex
	submitted int
}

// New creates a Machine.
func New(a Answerer, cfg Config) *Machine {
	cfg.defaults()
	return &Machine{cfg: cfg, answers: a, log: cfg.Logger}
}

// Submitted returns the number of applications sent in this session.
func (m *Machine) Submitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

// LimitReached reports whether the session cap has been hit.
func (m *Machine) LimitReached() bool {
	return m.Submitted() >= m.cfg.MaxApplications
}

// Result is the outcome of one attempt plus the states it went through.
type Result struct {
	model.ApplyResult
	Trail []State
	Steps int
}

// Final returns the last state of the attempt.
func (r Result) Final() State {
	if len(r.Trail) == 0 {
		return StateIdle
	}
	return r.Trail[len(r.Trail)-1]
}

// attempt is the per-call state.
type attempt struct {
	m     *Machine
	page  browser.Page
	loc   locator.ApplySection
	job   model.JobRecord
	jc    answers.JobContext
	log   *slog.Logger
	res   Result
	qa    map[string]int
	state State
	// submitClean is set once a submit click passed validation.
	submitClean bool
}

// Apply runs one application for job.Link on page.
//
// It never returns an error: every failure is a Result with Success false and
// a model.Outcome. The page is navigated back to where it was before the call
// on every exit path.
func (m *Machine) Apply(ctx context.Context, page browser.Page, loc locator.ApplySection, job model.JobRecord) (res Result) {
	a := &attempt{
		m:     m,
		page:  page,
		loc:   loc,
		job:   job,
		jc:    answers.JobContext{Title: job.Title, Company: job.Company, Platform: job.Platform},
		log:   m.log.With("job_id", job.ID(), "link", job.Link),
		qa:    map[string]int{},
		state: StateIdle,
	}
	a.res.Trail = []State{StateIdle}

	if m.LimitReached() {
		a.res.ApplyResult = model.ApplyResult{
			Message: fmt.Sprintf("Max applications reached (%d), not applying", m.cfg.MaxApplications),
			Outcome: model.OutcomeLimitReached,
		}
		return a.res
	}

	origin, _ := page.URL(ctx)
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("applyflow: automation fault", "panic", r, "state", a.state)
			a.closeModal(ctx)
			a.res.Success = false
			a.res.Outcome = model.OutcomeFault
			a.res.Message = fmt.Sprintf("automation fault in %s: %v", a.state, r)
		}
		a.restore(ctx, origin)
		res = a.res
	}()

	a.run(ctx)
	return a.res
}

func (a *attempt) run(ctx context.Context) {
	if err := a.page.Navigate(ctx, a.job.Link); err != nil {
		a.finish(false, false, model.OutcomeFault, "navigation failed: "+err.Error())
		return
	}
	a.advance(StateNavigated)
	a.m.cfg.Settle(ctx)

	if a.alreadyApplied(ctx) {
		a.advance(StateSuccess)
		a.finish(true, true, model.OutcomeAlreadyApplied, "already applied")
		return
	}

	a.advance(StateDetecting)
	trigger, err := a.loc.Trigger.Find(ctx, a.page)
	if err != nil {
		a.log.Debug("applyflow: no easy apply trigger", "err", err)
		a.advance(StateDismissed)
		a.finish(false, false, model.OutcomeNotEasyApply, "no easy apply button")
		return
	}
	if err := trigger.Click(ctx); err != nil {
		a.advance(StateDismissed)
		a.finish(false, false, model.OutcomeNotEasyApply, "easy apply button not clickable: "+err.Error())
		return
	}
	a.m.cfg.Settle(ctx)

	modal, err := a.loc.Modal.Find(ctx, a.page)
	if err != nil {
		a.advance(StateDismissed)
		a.finish(false, false, model.OutcomeNotEasyApply, "apply button opened no in-site form")
		return
	}
	a.res.WasEasyApply = true
	a.advance(StateModalOpen)

	a.loop(ctx, modal)
}

func (a *attempt) loop(ctx context.Context, modal browser.Element) {
	cfg := a.m.cfg
	failures := 0

	for step := 1; step <= cfg.MaxSteps; step++ {
		a.res.Steps = step
		if ctx.Err() != nil {
			a.stuck(ctx, "cancelled: "+ctx.Err().Error())
			return
		}

		a.advance(StateFillingFields)
		a.fill(ctx, modal)

		a.advance(StateAwaitingAction)
		btn, err := a.loc.PrimaryAction.Find(ctx, a.page)
		if err != nil {
			if a.submitClean && !a.loc.Modal.Exists(ctx, a.page) {
				a.succeed(ctx)
				return
			}
			failures++
			a.log.Debug("applyflow: no primary action", "step", step, "failures", failures)
			if failures >= cfg.MaxValidationRetries {
				a.stuck(ctx, "no action button in the form")
				return
			}
			cfg.Settle(ctx)
			continue
		}
		label := actionLabel(ctx, btn)
		action := ClassifyAction(label)
		a.log.Debug("applyflow: action", "step", step, "label", label, "action", action)

		if action == ActionSubmit && cfg.Unfollow {
			a.unfollow(ctx)
		}
		if err := btn.Click(ctx); err != nil {
			failures++
			if failures >= cfg.MaxValidationRetries {
				a.stuck(ctx, "action button not clickable: "+err.Error())
				return
			}
			continue
		}
		cfg.Settle(ctx)

		a.advance(StateValidating)
		if a.hasValidationError(ctx, modal) {
			failures++
			a.log.Info("applyflow: validation error", "step", step, "failures", failures)
			if failures >= cfg.MaxValidationRetries {
				a.stuck(ctx, fmt.Sprintf("validation failed %d times on the same step", failures))
				return
			}
			continue
		}
		failures = 0
		if action == ActionSubmit {
			a.submitClean = true
		}

		if a.succeeded(ctx) {
			a.succeed(ctx)
			return
		}
	}
	a.stuck(ctx, fmt.Sprintf("no submission after %d steps", cfg.MaxSteps))
}

func (a *attempt) succeed(ctx context.Context) {
	a.advance(StateSuccess)
	a.m.mu.Lock()
	a.m.submitted++
	a.m.mu.Unlock()
	a.closeModal(ctx)
	a.finish(true, true, model.OutcomeSubmitted, "application submitted")
}

// succeeded reports a confirmed submission: a success message, or the modal
// closing after a submit click that raised no validation error.
func (a *attempt) succeeded(ctx context.Context) bool {
	if a.loc.Success.Exists(ctx, a.page) {
		return true
	}
	if !a.loc.Modal.Exists(ctx, a.page) {
		return a.submitClean
	}
	if modal, err := a.loc.Modal.Find(ctx, a.page); err == nil {
		if t, err := modal.Text(ctx); err == nil && textnorm.ContainsAny(t, successKeywords) {
			return true
		}
	}
	return false
}

func (a *attempt) alreadyApplied(ctx context.Context) bool {
	if a.loc.Applied.Exists(ctx, a.page) {
		return true
	}
	body, err := a.page.Elements(ctx, "body")
	if err != nil || len(body) == 0 {
		return false
	}
	t, err := body[0].Text(ctx)
	return err == nil && textnorm.ContainsAny(t, alreadyAppliedKeywords)
}

func (a *attempt) hasValidationError(ctx context.Context, modal browser.Element) bool {
	if a.loc.Errors.Exists(ctx, a.page) {
		return true
	}
	if !a.loc.Modal.Exists(ctx, a.page) {
		return false
	}
	t, err := modal.Text(ctx)
	return err == nil && textnorm.ContainsAny(t, validationKeywords)
}

func (a *attempt) unfollow(ctx context.Context) {
	box, err := a.loc.Unfollow.Find(ctx, a.page)
	if err != nil {
		return
	}
	if on, err := box.Checked(ctx); err == nil && on {
		if err := box.Click(ctx); err != nil {
			a.log.Debug("applyflow: unfollow toggle failed", "err", err)
		}
	}
}

// stuck dismisses the modal and discards the draft.
func (a *attempt) stuck(ctx context.Context, why string) {
	a.advance(StateStuck)
	a.closeModal(ctx)
	a.advance(StateDismissed)
	a.finish(false, true, model.OutcomeStuck, why)
}

// closeModal clicks the dismiss control and confirms discarding, if present.
func (a *attempt) closeModal(ctx context.Context) {
	if !a.loc.Modal.Exists(ctx, a.page) {
		return
	}
	if btn, err := a.loc.Dismiss.Find(ctx, a.page); err == nil {
		if err := btn.Click(ctx); err != nil {
			a.log.Warn("applyflow: dismiss failed", "err", err)
			return
		}
		a.m.cfg.Settle(ctx)
	}
	if btn, err := a.loc.DiscardConfirm.Find(ctx, a.page); err == nil {
		if err := btn.Click(ctx); err != nil {
			a.log.Warn("applyflow: discard confirm failed", "err", err)
		}
		a.m.cfg.Settle(ctx)
	}
}

func (a *attempt) restore(ctx context.Context, origin string) {
	if origin == "" || origin == "about:blank" {
		return
	}
	cur, err := a.page.URL(ctx)
	if err == nil && cur == origin {
		return
	}
	if err := a.page.Navigate(context.WithoutCancel(ctx), origin); err != nil {
		a.log.Warn("applyflow: restore page failed", "origin", origin, "err", err)
	}
}

func (a *attempt) advance(to State) {
	if !IsTransitionAllowed(a.state, to) {
		a.log.Warn("applyflow: unexpected transition", "from", a.state, "to", to)
	}
	a.state = to
	a.res.Trail = append(a.res.Trail, to)
}

func (a *attempt) finish(success, easy bool, outcome model.Outcome, msg string) {
	a.res.Success = success
	a.res.WasEasyApply = easy
	a.res.Outcome = outcome
	a.res.Message = msg
	a.log.Info("applyflow: done", "outcome", outcome, "state", a.state, "steps", a.res.Steps, "message", msg)
}

func actionLabel(ctx context.Context, btn browser.Element) string {
	if t, err := btn.Text(ctx); err == nil && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	v, _ := btn.Attr(ctx, "aria-label")
	return strings.TrimSpace(v)
}
