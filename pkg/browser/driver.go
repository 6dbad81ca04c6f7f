package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a selector matches nothing.
var ErrNotFound = errors.New("element not found")

// Element is a handle to a single element on the page.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	Clear(ctx context.Context) error
	SelectOption(ctx context.Context, value string) error
	Press(ctx context.Context, key string) error

	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)

	// Query finds the first descendant matching selector.
	Query(ctx context.Context, selector string) (Element, error)
}

// Scope is a document to search: the main page or one nested frame.
type Scope interface {
	// Name identifies the scope in logs ("main", or the frame name or URL).
	Name() string

	// Query returns the first element matching selector, or ErrNotFound.
	Query(ctx context.Context, selector string) (Element, error)

	// QueryAll returns every element matching selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// WaitFor waits up to timeout for selector to attach. A timeout yields
	// ErrNotFound; a zero timeout queries once.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Evaluate runs a JavaScript expression in the scope.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// Content returns the serialized HTML of the scope.
	Content(ctx context.Context) (string, error)
}

// Page is a browser tab. Its own Scope methods act on the main document.
type Page interface {
	Scope

	Navigate(ctx context.Context, url string) error

	// Frames returns the nested frames in document order, excluding the main frame.
	Frames(ctx context.Context) ([]Scope, error)

	Close() error
}

// Opener opens a page for a replay session.
type Opener interface {
	Open(ctx context.Context) (Page, error)
}

// Scopes returns the main document followed by every nested frame. A failure
// to list frames leaves just the main document.
func Scopes(ctx context.Context, page Page) []Scope {
	scopes := []Scope{page}
	frames, err := page.Frames(ctx)
	if err != nil {
		return scopes
	}
	return append(scopes, frames...)
}
