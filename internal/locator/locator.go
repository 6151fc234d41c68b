// Package locator finds elements through ordered lists of strategies.
//
// A Chain is evaluated top to bottom; the first strategy that yields a
// visible element wins. Strategies with a Scope search inside that region
// only, so a chain lists its scoped strategies before the global fallback.
// Exhausting the chain returns a *NotFoundError, never a panic.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobmate/autoapply-service/internal/browser"
	"jobmate/autoapply-service/internal/textnorm"
)

// ErrElementNotFound is wrapped by every *NotFoundError.
var ErrElementNotFound = errors.New("element not found")

// NotFoundError lists the strategies that were tried.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return "element not found (no strategies)"
	}
	return fmt.Sprintf("element not found (tried %s)", strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrElementNotFound }

// Strategy is one way of finding an element.
type Strategy struct {
	Name string `yaml:"name"`
	// Scope is the CSS of a region searched instead of the root.
	Scope string `yaml:"scope,omitempty"`
	CSS   string `yaml:"css"`
	// Text, when set, keeps only elements whose text (or Attr value)
	// contains one of the phrases, compared after normalisation.
	Text []string `yaml:"text,omitempty"`
	Attr string   `yaml:"attr,omitempty"`
}

func (s Strategy) label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Scope != "" {
		return s.Scope + " " + s.CSS
	}
	return s.CSS
}

// Chain is an ordered list of strategies.
type Chain []Strategy

// Find returns the first visible element matched by the chain.
func (c Chain) Find(ctx context.Context, root browser.Finder) (browser.Element, error) {
	tried := make([]string, 0, len(c))
	for _, s := range c {
		els, err := s.find(ctx, root)
		tried = append(tried, s.label())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(els) > 0 {
			return els[0], nil
		}
	}
	return nil, &NotFoundError{Tried: tried}
}

// FindAll returns every visible element matched by the first strategy that
// matches anything.
func (c Chain) FindAll(ctx context.Context, root browser.Finder) ([]browser.Element, error) {
	tried := make([]string, 0, len(c))
	for _, s := range c {
		els, err := s.find(ctx, root)
		tried = append(tried, s.label())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(els) > 0 {
			return els, nil
		}
	}
	return nil, &NotFoundError{Tried: tried}
}

// Exists reports whether the chain matches a visible element.
func (c Chain) Exists(ctx context.Context, root browser.Finder) bool {
	_, err := c.Find(ctx, root)
	return err == nil
}

// Text returns the trimmed text of the element the chain finds, or "".
func (c Chain) Text(ctx context.Context, root browser.Finder) string {
	el, err := c.Find(ctx, root)
	if err != nil {
		return ""
	}
	t, err := el.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}

func (s Strategy) find(ctx context.Context, root browser.Finder) ([]browser.Element, error) {
	if s.CSS == "" {
		return nil, nil
	}

	regions := []browser.Finder{root}
	if s.Scope != "" {
		scoped, err := root.Elements(ctx, s.Scope)
		if err != nil {
			return nil, err
		}
		regions = regions[:0]
		for _, r := range scoped {
			regions = append(regions, r)
		}
	}

	var out []browser.Element
	for _, r := range regions {
		els, err := r.Elements(ctx, s.CSS)
		if err != nil {
			return nil, err
		}
		for _, el := range els {
			if ok, err := el.Visible(ctx); err != nil || !ok {
				continue
			}
			if len(s.Text) > 0 && !s.textMatches(ctx, el) {
				continue
			}
			out = append(out, el)
		}
	}
	return out, nil
}

func (s Strategy) textMatches(ctx context.Context, el browser.Element) bool {
	var (
		v   string
		err error
	)
	if s.Attr != "" {
		v, err = el.Attr(ctx, s.Attr)
	} else {
		v, err = el.Text(ctx)
	}
	if err != nil {
		return false
	}
	return textnorm.ContainsAny(v, s.Text)
}
