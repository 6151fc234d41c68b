package applyflow

import (
	"context"
	"strings"

	"jobmate/autoapply-service/internal/answers"
	"jobmate/autoapply-service/internal/browser"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/textnorm"
)

// Answer sources recorded in the conversation.
const (
	sourceStored    = "stored"
	sourceDefault   = "default"
	sourceHeuristic = "heuristic"
	sourceCaptured  = "captured"
	sourceAgreement = "agreement"
)

// fill answers every unanswered question in the modal. Fields that are
// already filled are left alone, so a retry after a validation error only
// touches what is still empty.
func (a *attempt) fill(ctx context.Context, modal browser.Element) {
	sel := a.loc.Fields
	if sel.Group == "" {
		return
	}
	groups, err := modal.Elements(ctx, sel.Group)
	if err != nil {
		a.log.Debug("applyflow: list fields", "err", err)
		return
	}
	for _, g := range groups {
		if ok, err := g.Visible(ctx); err != nil || !ok {
			continue
		}
		question := a.question(ctx, g)
		if question == "" {
			continue
		}
		a.fillText(ctx, g, question)
		a.fillSelect(ctx, g, question)
		a.fillRadio(ctx, g, question)
		a.fillCheckbox(ctx, g, question)
	}
}

func (a *attempt) question(ctx context.Context, g browser.Element) string {
	if a.loc.Fields.Label != "" {
		if els, err := g.Elements(ctx, a.loc.Fields.Label); err == nil {
			if t := browser.FirstText(ctx, els); t != "" {
				return t
			}
		}
	}
	t, err := g.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}

func (a *attempt) fillText(ctx context.Context, g browser.Element, question string) {
	if a.loc.Fields.Text == "" {
		return
	}
	inputs, err := g.Elements(ctx, a.loc.Fields.Text)
	if err != nil {
		return
	}
	for _, in := range inputs {
		if v, err := in.Value(ctx); err != nil || strings.TrimSpace(v) != "" {
			continue
		}
		answer, source := a.resolveText(ctx, question, in)
		if answer == "" {
			continue
		}
		if source != sourceCaptured {
			if err := in.Input(ctx, answer); err != nil {
				a.log.Warn("applyflow: input failed", "question", question, "err", err)
				continue
			}
		}
		a.remember(question, answer, source)
	}
}

// resolveText walks the answer precedence for a free-text field: stored
// answer, safe default, then interactive capture on the live field.
func (a *attempt) resolveText(ctx context.Context, question string, in browser.Element) (string, string) {
	if m, ok := a.m.answers.Lookup(question); ok {
		return m.Answer, sourceStored
	}
	if v, ok := answers.SafeDefault(question, a.jc); ok {
		return v, sourceDefault
	}
	if v, ok := a.m.answers.Capture(ctx, question, a.jc, in.Value); ok {
		return v, sourceCaptured
	}
	return "", ""
}

func (a *attempt) fillSelect(ctx context.Context, g browser.Element, question string) {
	if a.loc.Fields.Select == "" {
		return
	}
	selects, err := g.Elements(ctx, a.loc.Fields.Select)
	if err != nil {
		return
	}
	for _, s := range selects {
		if v, err := s.Value(ctx); err == nil && !answers.IsPlaceholder(v) {
			continue
		}
		opts, err := s.Elements(ctx, "option")
		if err != nil {
			continue
		}
		labels := texts(ctx, opts)
		choice, ok := a.m.answers.ChooseOption(ctx, question, labels, a.jc)
		if !ok {
			continue
		}
		if err := s.Select(ctx, choice.Option); err != nil {
			a.log.Warn("applyflow: select failed", "question", question, "option", choice.Option, "err", err)
			continue
		}
		a.remember(question, choice.Option, choiceSource(choice))
	}
}

func (a *attempt) fillRadio(ctx context.Context, g browser.Element, question string) {
	sel := a.loc.Fields
	if sel.Option == "" {
		return
	}
	if sel.Radio != "" {
		if radios, err := g.Elements(ctx, sel.Radio); err == nil {
			for _, r := range radios {
				if on, err := r.Checked(ctx); err == nil && on {
					return
				}
			}
		}
	}
	opts, err := g.Elements(ctx, sel.Option)
	if err != nil || len(opts) == 0 {
		return
	}
	choice, ok := a.m.answers.ChooseOption(ctx, question, texts(ctx, opts), a.jc)
	if !ok {
		return
	}
	if err := opts[choice.Index].Click(ctx); err != nil {
		a.log.Warn("applyflow: option click failed", "question", question, "option", choice.Option, "err", err)
		return
	}
	a.remember(question, choice.Option, choiceSource(choice))
}

// fillCheckbox ticks required-agreement boxes. Other checkboxes are left as
// they are.
func (a *attempt) fillCheckbox(ctx context.Context, g browser.Element, question string) {
	if a.loc.Fields.Checkbox == "" || !textnorm.ContainsAny(question, agreementKeywords) {
		return
	}
	boxes, err := g.Elements(ctx, a.loc.Fields.Checkbox)
	if err != nil {
		return
	}
	for _, b := range boxes {
		if on, err := b.Checked(ctx); err != nil || on {
			continue
		}
		if err := b.Click(ctx); err != nil {
			a.log.Warn("applyflow: agreement click failed", "question", question, "err", err)
			continue
		}
		a.remember(question, "checked", sourceAgreement)
	}
}

func (a *attempt) remember(question, answer, source string) {
	key := textnorm.Normalize(question)
	if i, ok := a.qa[key]; ok {
		a.res.Conversation[i] = model.QA{Question: question, Answer: answer, Source: source}
		return
	}
	a.qa[key] = len(a.res.Conversation)
	a.res.Conversation = append(a.res.Conversation, model.QA{Question: question, Answer: answer, Source: source})
}

func choiceSource(c answers.OptionChoice) string {
	if c.Source == "stored" {
		return sourceStored
	}
	return sourceHeuristic
}

func texts(ctx context.Context, els []browser.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			continue
		}
		out[i] = strings.TrimSpace(t)
	}
	return out
}
