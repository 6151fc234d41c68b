package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const scrollJS = `(sel) => {
	const el = (sel && document.querySelector(sel)) || document.scrollingElement || document.body;
	el.scrollTop = el.scrollHeight;
	window.scrollTo(0, document.body.scrollHeight);
}`

type rodPage struct {
	p          *rod.Page
	navTimeout time.Duration
	log        *slog.Logger
}

func (r *rodPage) Elements(ctx context.Context, css string) ([]Element, error) {
	els, err := r.p.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()

	p := r.p.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		r.log.Warn("browser: wait load timeout", "url", url, "err", err)
	}
	return nil
}

func (r *rodPage) URL(ctx context.Context) (string, error) {
	info, err := r.p.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *rodPage) Scroll(ctx context.Context, css string) error {
	_, err := r.p.Context(ctx).Eval(scrollJS, css)
	return err
}

type rodElement struct {
	e *rod.Element
}

func wrap(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, e := range els {
		out = append(out, &rodElement{e: e})
	}
	return out
}

func (r *rodElement) Elements(ctx context.Context, css string) ([]Element, error) {
	els, err := r.e.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (r *rodElement) Text(ctx context.Context) (string, error) {
	return r.e.Context(ctx).Text()
}

func (r *rodElement) Attr(ctx context.Context, name string) (string, error) {
	v, err := r.e.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (r *rodElement) HTML(ctx context.Context) (string, error) {
	return r.e.Context(ctx).HTML()
}

func (r *rodElement) Value(ctx context.Context) (string, error) {
	v, err := r.e.Context(ctx).Property("value")
	if err != nil {
		return "", err
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

func (r *rodElement) Checked(ctx context.Context) (bool, error) {
	v, err := r.e.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (r *rodElement) Visible(ctx context.Context) (bool, error) {
	return r.e.Context(ctx).Visible()
}

func (r *rodElement) Click(ctx context.Context) error {
	e := r.e.Context(ctx)
	if err := e.ScrollIntoView(); err != nil {
		return err
	}
	return e.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodElement) Input(ctx context.Context, text string) error {
	e := r.e.Context(ctx)
	if err := e.SelectAllText(); err != nil {
		return err
	}
	return e.Input(text)
}

func (r *rodElement) Select(ctx context.Context, option string) error {
	return r.e.Context(ctx).Select([]string{option}, true, rod.SelectorTypeText)
}
