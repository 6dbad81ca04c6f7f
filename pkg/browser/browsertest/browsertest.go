// Package browsertest provides an in-memory browser.Page for tests.
//
// Elements are registered per scope under the exact selector string the code
// under test will query. Every interaction is appended to Page.Journal as
// "<verb> <scope> <selector>[ <value>]", and every query to Page.Queries as
// "<scope> <selector>".
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/formreplay/pkg/browser"
)

// Page is a fake browser tab. Its embedded Frame is the main document.
type Page struct {
	*Frame

	Journal   []string
	Queries   []string
	Navigated []string
	Closed    bool

	// NavigateErr and FramesErr are returned by Navigate and Frames when set.
	NavigateErr error
	FramesErr   error

	frames []*Frame
}

// NewPage returns an empty page with a main document named "main".
func NewPage() *Page {
	p := &Page{}
	p.Frame = newFrame(p, "main")
	return p
}

// AddFrame appends a nested frame scope.
func (p *Page) AddFrame(name string) *Frame {
	f := newFrame(p, name)
	p.frames = append(p.frames, f)
	return f
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigated = append(p.Navigated, url)
	p.Journal = append(p.Journal, "navigate "+url)
	return nil
}

func (p *Page) Frames(ctx context.Context) ([]browser.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.FramesErr != nil {
		return nil, p.FramesErr
	}
	scopes := make([]browser.Scope, 0, len(p.frames))
	for _, f := range p.frames {
		scopes = append(scopes, f)
	}
	return scopes, nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

// Opener hands out a fixed page.
type Opener struct {
	Page  *Page
	Err   error
	Opens int
}

func (o *Opener) Open(ctx context.Context) (browser.Page, error) {
	o.Opens++
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Page, nil
}

// Frame is a fake document scope.
type Frame struct {
	name     string
	page     *Page
	elements map[string][]*Element

	// HTML is returned by Content.
	HTML string

	// Scripts answers Evaluate by exact script text. A missing script
	// evaluates to an error, like an undefined function on a real page.
	Scripts   map[string]func(arg any) (any, error)
	Evaluated []string
}

func newFrame(p *Page, name string) *Frame {
	return &Frame{
		name:     name,
		page:     p,
		elements: make(map[string][]*Element),
		Scripts:  make(map[string]func(arg any) (any, error)),
	}
}

// Add registers el under selector and returns it.
func (f *Frame) Add(selector string, el *Element) *Element {
	el.bind(f, selector)
	f.elements[selector] = append(f.elements[selector], el)
	return el
}

// Script registers a script that succeeds and records nothing else.
func (f *Frame) Script(script string) {
	f.Scripts[script] = func(any) (any, error) { return nil, nil }
}

func (f *Frame) Name() string {
	return f.name
}

func (f *Frame) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.page.Queries = append(f.page.Queries, f.name+" "+selector)
	els := f.elements[selector]
	if len(els) == 0 {
		return nil, browser.ErrNotFound
	}
	return els[0], nil
}

func (f *Frame) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.page.Queries = append(f.page.Queries, f.name+" "+selector)
	out := make([]browser.Element, 0, len(f.elements[selector]))
	for _, el := range f.elements[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (f *Frame) WaitFor(ctx context.Context, selector string, _ time.Duration) (browser.Element, error) {
	return f.Query(ctx, selector)
}

func (f *Frame) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.Evaluated = append(f.Evaluated, script)
	fn, ok := f.Scripts[script]
	if !ok {
		return nil, fmt.Errorf("ReferenceError: %s is not defined", script)
	}
	f.page.Journal = append(f.page.Journal, "evaluate "+f.name+" "+script)
	return fn(arg)
}

func (f *Frame) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.HTML, nil
}

// ErrInjected is returned by interactions configured to fail.
var ErrInjected = errors.New("injected failure")

// Element is a fake element.
type Element struct {
	Attrs       map[string]string
	TextContent string
	Hidden      bool
	Disabled    bool

	// Options restricts SelectOption to these values; nil accepts any.
	Options []string

	// Value holds the last filled or selected value.
	Value string

	// FailClicks and FailFills make the next N clicks or fills fail.
	FailClicks int
	FailFills  int

	// Children answers Query on this element by exact selector.
	Children map[string]*Element

	Clicks int

	selector string
	scope    *Frame
}

func (e *Element) bind(f *Frame, selector string) {
	e.scope = f
	e.selector = selector
	for sel, child := range e.Children {
		child.bind(f, selector+" >> "+sel)
	}
}

func (e *Element) record(verb string, value ...string) {
	entry := verb + " " + e.scope.name + " " + e.selector
	for _, v := range value {
		entry += " " + v
	}
	e.scope.page.Journal = append(e.scope.page.Journal, entry)
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.FailClicks > 0 {
		e.FailClicks--
		return ErrInjected
	}
	e.Clicks++
	e.record("click")
	return nil
}

func (e *Element) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.FailFills > 0 {
		e.FailFills--
		return ErrInjected
	}
	e.Value = value
	e.record("fill", value)
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Value = ""
	e.record("clear")
	return nil
}

func (e *Element) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Options != nil {
		found := false
		for _, o := range e.Options {
			if o == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("option %q not found", value)
		}
	}
	e.Value = value
	e.record("select", value)
	return nil
}

func (e *Element) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.record("press", key)
	return nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.Attrs[name], nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.TextContent, nil
}

func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return !e.Hidden, nil
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return !e.Disabled, nil
}

func (e *Element) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	child, ok := e.Children[selector]
	if !ok {
		return nil, browser.ErrNotFound
	}
	return child, nil
}

var (
	_ browser.Page    = (*Page)(nil)
	_ browser.Element = (*Element)(nil)
	_ browser.Opener  = (*Opener)(nil)
)
