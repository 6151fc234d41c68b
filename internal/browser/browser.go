// Package browser holds the automation session shared by the adapters and
// the apply state machine.
//
// A Manager owns one Chrome instance and one tab. It is created and closed by
// the command that needs it and handed down explicitly; nothing in the
// process reaches for a global session. Only one workflow drives the tab at a
// time.
package browser

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
)

// Finder looks up descendants by CSS selector. An empty result is not an
// error.
type Finder interface {
	Elements(ctx context.Context, css string) ([]Element, error)
}

// Element is a DOM node on the live page.
type Element interface {
	Finder
	Text(ctx context.Context) (string, error)
	// Attr returns the attribute value, or "" when it is absent.
	Attr(ctx context.Context, name string) (string, error)
	HTML(ctx context.Context) (string, error)
	// Value is the current value of an input, textarea or select.
	Value(ctx context.Context) (string, error)
	Checked(ctx context.Context) (bool, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// Input replaces the field's content with text.
	Input(ctx context.Context, text string) error
	// Select picks a <select> option by its visible text.
	Select(ctx context.Context, option string) error
}

// Page is the tab the session drives.
type Page interface {
	Finder
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// Scroll scrolls the element matching css to its bottom, or the whole
	// document when css is empty or matches nothing.
	Scroll(ctx context.Context, css string) error
}

// Session hands out the tab of the running browser. *Manager implements it.
type Session interface {
	Page(ctx context.Context) (Page, error)
}

// Pause sleeps for base plus a random share of jitter so that asynchronous
// page content can settle. It returns early when ctx is done.
func Pause(ctx context.Context, base, jitter time.Duration) {
	d := base
	if jitter > 0 {
		d += rand.N(jitter)
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// FirstText returns the trimmed text of the first element, or "".
func FirstText(ctx context.Context, els []Element) string {
	for _, el := range els {
		if t, err := el.Text(ctx); err == nil && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
