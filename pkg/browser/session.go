package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is an open browser tab with its browser and isolated context.
// It implements Page; its Scope methods act on the main frame.
type Session struct {
	*scope

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the active tab
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// CurrentURL is the URL after the last navigation
	CurrentURL string

	// frames keeps one scope per Playwright frame so a frame compares equal
	// across Frames calls
	frames map[playwright.Frame]*scope
}

func newSession(browser playwright.Browser, bctx playwright.BrowserContext, page playwright.Page, headless bool) *Session {
	return &Session{
		scope: &scope{
			name:     "main",
			locate:   func(selector string) playwright.Locator { return page.Locator(selector) },
			evaluate: page.Evaluate,
			content:  page.Content,
		},
		Browser:    browser,
		Context:    bctx,
		Page:       page,
		Headless:   headless,
		CreatedAt:  time.Now(),
		CurrentURL: "about:blank",
	}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutFrom(ctx),
	}

	if _, err := s.Page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.CurrentURL = s.Page.URL()
	s.frames = nil
	return nil
}

// Frames returns every frame with a parent, in Playwright's frame order.
func (s *Session) Frames(ctx context.Context) ([]Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scopes []Scope
	for _, f := range s.Page.Frames() {
		if f.ParentFrame() == nil {
			continue
		}
		scopes = append(scopes, s.frameScope(f))
	}
	return scopes, nil
}

// Close closes the page, its context and the browser.
func (s *Session) Close() error {
	return errors.Join(
		s.Page.Close(),
		s.Context.Close(),
		s.Browser.Close(),
	)
}

func (s *Session) frameScope(f playwright.Frame) *scope {
	if sc, ok := s.frames[f]; ok {
		return sc
	}
	if s.frames == nil {
		s.frames = make(map[playwright.Frame]*scope)
	}
	sc := newFrameScope(f)
	s.frames[f] = sc
	return sc
}

func newFrameScope(f playwright.Frame) *scope {
	name := f.Name()
	if name == "" {
		name = f.URL()
	}
	return &scope{
		name:     "frame " + name,
		locate:   func(selector string) playwright.Locator { return f.Locator(selector) },
		evaluate: f.Evaluate,
		content:  f.Content,
	}
}

// scope adapts a Playwright page or frame to Scope.
type scope struct {
	name     string
	locate   func(selector string) playwright.Locator
	evaluate func(expression string, arg ...interface{}) (interface{}, error)
	content  func() (string, error)
}

func (s *scope) Name() string {
	return s.name
}

func (s *scope) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return first(s.locate(selector), selector)
}

func (s *scope) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locators, err := s.locate(selector).All()
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", selector, err)
	}

	elements := make([]Element, 0, len(locators))
	for _, loc := range locators {
		elements = append(elements, &element{loc: loc, selector: selector})
	}
	return elements, nil
}

func (s *scope) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Playwright treats a zero timeout as no timeout
	if timeout <= 0 {
		return s.Query(ctx, selector)
	}

	loc := s.locate(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wait for %s failed: %w", selector, err)
	}
	return &element{loc: loc, selector: selector}, nil
}

func (s *scope) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		result interface{}
		err    error
	)
	if arg == nil {
		result, err = s.evaluate(script)
	} else {
		result, err = s.evaluate(script, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

func (s *scope) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := s.content()
	if err != nil {
		return "", fmt.Errorf("content failed: %w", err)
	}
	return html, nil
}

func first(loc playwright.Locator, selector string) (Element, error) {
	loc = loc.First()
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", selector, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return &element{loc: loc, selector: selector}, nil
}

// element adapts a Playwright locator pinned to one match.
type element struct {
	loc      playwright.Locator
	selector string
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.loc.Click(playwright.LocatorClickOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("click %s failed: %w", e.selector, err)
	}
	return nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("fill %s failed: %w", e.selector, err)
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.loc.Clear(playwright.LocatorClearOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("clear %s failed: %w", e.selector, err)
	}
	return nil
}

func (e *element) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := []string{value}
	_, err := e.loc.SelectOption(
		playwright.SelectOptionValues{Values: &values},
		playwright.LocatorSelectOptionOptions{Timeout: timeoutFrom(ctx)},
	)
	if err != nil {
		return fmt.Errorf("select %q in %s failed: %w", value, e.selector, err)
	}
	return nil
}

func (e *element) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.loc.Press(key, playwright.LocatorPressOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("press %s on %s failed: %w", key, e.selector, err)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: timeoutFrom(ctx)})
	if err != nil {
		return "", fmt.Errorf("attribute %s of %s failed: %w", name, e.selector, err)
	}
	return v, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutFrom(ctx)})
	if err != nil {
		return "", fmt.Errorf("text of %s failed: %w", e.selector, err)
	}
	return v, nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsVisible()
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsEnabled()
}

func (e *element) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return first(e.loc.Locator(selector), e.selector+" >> "+selector)
}

// timeoutFrom converts the context deadline into a Playwright timeout in
// milliseconds. It returns nil, meaning the page default, without a deadline.
func timeoutFrom(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}
