// Package execute performs classified actions against a page with bounded
// retries and settle delays.
package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/locate"
	"github.com/entrhq/formreplay/pkg/logging"
	"github.com/entrhq/formreplay/pkg/report"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultMaxAttempts  = 3
	DefaultConfirmLabel = "确定"
)

// Options configures an Executor. Zero durations skip the wait.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration

	FillSettle    time.Duration
	SelectSettle  time.Duration
	ClickSettle   time.Duration
	NavSettle     time.Duration
	CardSettle    time.Duration
	DialogWait    time.Duration
	SelectTimeout time.Duration

	RadioName    string
	ConfirmLabel string

	// EnterAfterFill lists title globs whose inputs get an Enter key press
	// after filling.
	EnterAfterFill []string
}

// Result is the outcome of Execute.
type Result struct {
	Descriptor action.Descriptor
	Attempts   int
	Strategy   string
	Status     report.Status
	Err        error
}

// Executor runs descriptors against a page.
type Executor struct {
	locator *locate.Locator
	opts    Options
	enter   *TitleMatcher
	log     *logging.Logger

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an executor that finds elements with locator.
func New(locator *locate.Locator, opts Options, log *logging.Logger) (*Executor, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RadioName == "" {
		opts.RadioName = locate.DefaultRadioName
	}
	if opts.ConfirmLabel == "" {
		opts.ConfirmLabel = DefaultConfirmLabel
	}
	if log == nil {
		log = logging.Discard()
	}

	enter, err := NewTitleMatcher(opts.EnterAfterFill)
	if err != nil {
		return nil, fmt.Errorf("failed to create enter-after-fill matcher: %w", err)
	}

	return &Executor{
		locator: locator,
		opts:    opts,
		enter:   enter,
		log:     log,
		sleep:   Sleep,
	}, nil
}

// Execute locates and performs d, retrying failed attempts. Failures are
// logged and reported in the result; they never stop the caller.
func (e *Executor) Execute(ctx context.Context, page browser.Page, d action.Descriptor) Result {
	res := Result{Descriptor: d}
	target := locate.TargetFor(d)
	limit := e.opts.MaxAttempts

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.Status = report.StatusFailed
			res.Err = err
			return res
		}

		m, err := e.locate(ctx, page, d, target)
		if err == nil {
			err = e.Perform(ctx, page, d, m)
		}
		if err == nil {
			res.Status = report.StatusSucceeded
			res.Strategy = m.Strategy
			e.log.Infof("✓ %s via %s", describe(d), m.Strategy)
			_ = e.sleep(ctx, e.settle(d.Kind))
			return res
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Status = report.StatusFailed
			res.Err = ctxErr
			return res
		}

		lastErr = err
		e.log.Warnf("attempt %d/%d failed for %s: %v", attempt, limit, describe(d), err)

		if attempt < limit {
			if err := e.sleep(ctx, e.opts.RetryDelay); err != nil {
				res.Status = report.StatusFailed
				res.Err = err
				return res
			}
		}
	}

	res.Err = lastErr
	if errors.Is(lastErr, locate.ErrNotFound) {
		res.Status = report.StatusNotFound
		e.log.Warnf("Element not found for %s after %d attempts", describe(d), limit)
	} else {
		res.Status = report.StatusFailed
		e.log.Errorf("Action failed for %s after %d attempts: %v", describe(d), limit, lastErr)
	}
	return res
}

// locate finds the element for d. A bank card with no matching row falls
// back to the first radio of the account list.
func (e *Executor) locate(ctx context.Context, page browser.Page, d action.Descriptor, t locate.Target) (locate.Match, error) {
	m, err := e.locator.Locate(ctx, page, t)
	if err == nil || d.Kind != action.KindCardTail || !errors.Is(err, locate.ErrNotFound) {
		return m, err
	}

	for _, scope := range browser.Scopes(ctx, page) {
		el, qerr := scope.Query(ctx, browser.Radio(e.opts.RadioName))
		if qerr != nil {
			continue
		}
		e.log.Warnf("No bank card ending in %s, selecting the first card in %s", d.Payload, scope.Name())
		return locate.Match{Strategy: "card-first-radio", Scope: scope, Element: el}, nil
	}
	return m, err
}

// Perform runs a single attempt of d on an already located element.
func (e *Executor) Perform(ctx context.Context, page browser.Page, d action.Descriptor, m locate.Match) error {
	if m.Invoked {
		return nil
	}
	if m.Element == nil {
		return fmt.Errorf("no element for %s", describe(d))
	}
	el := m.Element

	switch d.Kind {
	case action.KindFill:
		if err := el.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear field: %w", err)
		}
		if err := el.Fill(ctx, d.Payload); err != nil {
			return fmt.Errorf("failed to fill field: %w", err)
		}
		if e.enter.Match(d.Title) {
			if err := el.Press(ctx, "Enter"); err != nil {
				return fmt.Errorf("failed to press Enter: %w", err)
			}
			e.log.Debugf("Pressed Enter after filling %s", d.Title)
			return e.sleep(ctx, e.opts.DialogWait)
		}
		return nil

	case action.KindDropdown:
		sctx := ctx
		if e.opts.SelectTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, e.opts.SelectTimeout)
			defer cancel()
		}
		if err := el.SelectOption(sctx, d.Payload); err != nil {
			return fmt.Errorf("failed to select option %q: %w", d.Shown(), err)
		}
		return nil

	case action.KindButton, action.KindNavPanel:
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("failed to click: %w", err)
		}
		return nil

	case action.KindCardTail:
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("failed to select bank card: %w", err)
		}
		if err := e.sleep(ctx, e.opts.DialogWait); err != nil {
			return err
		}
		e.confirm(ctx, page, m.Scope)
		return nil

	default:
		return fmt.Errorf("unsupported action kind: %s", d.Kind)
	}
}

// confirm clicks the dialog's confirm control, searching the scope the card
// was found in, then the main page, then every frame. A miss is only logged.
func (e *Executor) confirm(ctx context.Context, page browser.Page, active browser.Scope) {
	scopes := []browser.Scope{}
	seen := map[browser.Scope]bool{}
	for _, s := range append([]browser.Scope{active}, browser.Scopes(ctx, page)...) {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}

	selectors := ConfirmSelectors(e.opts.ConfirmLabel)
	for _, scope := range scopes {
		for _, sel := range selectors {
			els, err := scope.QueryAll(ctx, sel)
			if err != nil {
				continue
			}
			for _, el := range els {
				if !usable(ctx, el) {
					continue
				}
				if err := el.Click(ctx); err != nil {
					e.log.Debugf("Confirm click failed in %s: %v", scope.Name(), err)
					continue
				}
				e.log.Debugf("Confirmed bank card dialog in %s via %s", scope.Name(), sel)
				return
			}
		}
	}
	e.log.Warnf("No %q button found for the bank card dialog", e.opts.ConfirmLabel)
}

// ConfirmSelectors lists the selectors tried for a dialog's confirm control.
func ConfirmSelectors(label string) []string {
	return []string{
		browser.HasText("button", label),
		browser.HasText(".ui-dialog-buttonpane button", label),
		browser.HasText(".ui-dialog-buttonset button", label),
		browser.ByAttr(`input[type="button"]`, "value", label),
	}
}

func usable(ctx context.Context, el browser.Element) bool {
	visible, err := el.IsVisible(ctx)
	if err != nil || !visible {
		return false
	}
	enabled, err := el.IsEnabled(ctx)
	return err == nil && enabled
}

func (e *Executor) settle(kind action.Kind) time.Duration {
	switch kind {
	case action.KindFill:
		return e.opts.FillSettle
	case action.KindDropdown:
		return e.opts.SelectSettle
	case action.KindButton:
		return e.opts.ClickSettle
	case action.KindNavPanel:
		return e.opts.NavSettle
	case action.KindCardTail:
		return e.opts.CardSettle
	default:
		return 0
	}
}

func describe(d action.Descriptor) string {
	if d.Target != "" {
		return fmt.Sprintf("%s %s [%s] %q", d.Kind, d.Title, d.Target, d.Shown())
	}
	return fmt.Sprintf("%s %s %q", d.Kind, d.Title, d.Shown())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
