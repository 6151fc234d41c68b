// Package browsertest provides scripted in-memory pages for tests that would
// otherwise need a real Chrome.
package browsertest

import (
	"context"
	"errors"
	"strings"

	"jobmate/autoapply-service/internal/browser"
)

// Element is a fake DOM node. Children are keyed by the exact CSS selector
// the code under test asks for.
type Element struct {
	Label    string
	Attrs    map[string]string
	Markup   string
	Val      string
	On       bool // checked state of checkboxes and radios
	Hidden   bool
	Children map[string][]*Element

	// OnClick runs after every click; tests use it to advance the page.
	OnClick func(*Element)
	// ClickErr makes Click fail.
	ClickErr error

	Clicks   int
	Inputs   []string
	Selected []string
}

var _ browser.Element = (*Element)(nil)

// El builds a visible element with the given text.
func El(text string) *Element { return &Element{Label: text} }

// With adds children under css and returns e.
func (e *Element) With(css string, children ...*Element) *Element {
	if e.Children == nil {
		e.Children = map[string][]*Element{}
	}
	e.Children[css] = append(e.Children[css], children...)
	return e
}

// Set replaces the children under css.
func (e *Element) Set(css string, children ...*Element) {
	if e.Children == nil {
		e.Children = map[string][]*Element{}
	}
	if len(children) == 0 {
		delete(e.Children, css)
		return
	}
	e.Children[css] = children
}

// WithAttr sets an attribute and returns e.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

func (e *Element) Elements(_ context.Context, css string) ([]browser.Element, error) {
	kids := e.Children[css]
	out := make([]browser.Element, 0, len(kids))
	for _, k := range kids {
		out = append(out, k)
	}
	return out, nil
}

func (e *Element) Text(context.Context) (string, error) { return e.Label, nil }

func (e *Element) Attr(_ context.Context, name string) (string, error) { return e.Attrs[name], nil }

func (e *Element) HTML(context.Context) (string, error) { return e.Markup, nil }

func (e *Element) Value(context.Context) (string, error) { return e.Val, nil }

func (e *Element) Checked(context.Context) (bool, error) { return e.On, nil }

func (e *Element) Visible(context.Context) (bool, error) { return !e.Hidden, nil }

func (e *Element) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	switch strings.ToLower(e.Attrs["type"]) {
	case "checkbox":
		e.On = !e.On
	case "radio":
		e.On = true
	}
	if e.OnClick != nil {
		e.OnClick(e)
	}
	return nil
}

func (e *Element) Input(_ context.Context, text string) error {
	e.Inputs = append(e.Inputs, text)
	e.Val = text
	return nil
}

// ErrNoOption is returned by Select when no child "option" has the text.
var ErrNoOption = errors.New("browsertest: no such option")

func (e *Element) Select(_ context.Context, option string) error {
	for _, o := range e.Children["option"] {
		if o.Label == option {
			e.Selected = append(e.Selected, option)
			e.Val = option
			return nil
		}
	}
	return ErrNoOption
}

// Page is a fake tab. Root is the document; tests swap it from OnNavigate or
// OnClick hooks to simulate page changes.
type Page struct {
	Root       *Element
	Current    string
	Visited    []string
	Scrolls    int
	OnNavigate func(p *Page, url string) error
	OnScroll   func(p *Page)
}

var _ browser.Page = (*Page)(nil)

// NewPage returns a page with an empty document at url.
func NewPage(url string) *Page {
	return &Page{Root: &Element{}, Current: url}
}

func (p *Page) Elements(ctx context.Context, css string) ([]browser.Element, error) {
	return p.Root.Elements(ctx, css)
}

func (p *Page) Navigate(_ context.Context, url string) error {
	if p.OnNavigate != nil {
		if err := p.OnNavigate(p, url); err != nil {
			return err
		}
	}
	p.Visited = append(p.Visited, url)
	p.Current = url
	return nil
}

func (p *Page) URL(context.Context) (string, error) { return p.Current, nil }

func (p *Page) Scroll(context.Context, string) error {
	p.Scrolls++
	if p.OnScroll != nil {
		p.OnScroll(p)
	}
	return nil
}

// Session hands out a fixed page.
type Session struct {
	P   *Page
	Err error
}

var _ browser.Session = (*Session)(nil)

func (s *Session) Page(context.Context) (browser.Page, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.P, nil
}
