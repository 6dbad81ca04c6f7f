// Package locate finds the element a descriptor acts on.
//
// A Locator walks an ordered list of strategies and stops at the first one
// that produces a match. Which strategies apply depends on the action kind:
// identifier lookups run for every kind that has an identifier, while
// navigation panel and bank card strategies are driven by the cell's token.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/browser"
	"github.com/entrhq/formreplay/pkg/logging"
)

// ErrNotFound is returned when every applicable strategy misses.
var ErrNotFound = browser.ErrNotFound

// Defaults used when Options leaves a field empty.
const (
	DefaultNavFunction = "navToPrj"
	DefaultPanelClass  = "syslink"
	DefaultRadioName   = "rdoacnt"
)

// Target is what to look for.
type Target struct {
	// ID is the identifier resolved from the column title. It may be empty
	// for token-driven kinds.
	ID    string
	Kind  action.Kind
	Token string
}

// TargetFor builds the target of a descriptor. Only token-driven kinds carry
// the payload; fill values never reach locate logs or errors.
func TargetFor(d action.Descriptor) Target {
	t := Target{ID: d.Target, Kind: d.Kind}
	if d.Kind.TokenDriven() {
		t.Token = d.Payload
	}
	return t
}

func (t Target) String() string {
	switch {
	case t.ID != "" && t.Token != "":
		return fmt.Sprintf("%s %q (id %s)", t.Kind, t.Token, t.ID)
	case t.ID != "":
		return fmt.Sprintf("%s id %s", t.Kind, t.ID)
	default:
		return fmt.Sprintf("%s %q", t.Kind, t.Token)
	}
}

// Match is a located element.
type Match struct {
	// Strategy names the strategy that produced the match.
	Strategy string

	// Scope is the document the element was found in.
	Scope browser.Scope

	// Element is nil when Invoked is set.
	Element browser.Element

	// Invoked means the strategy already performed the action through a
	// page script, so there is nothing left to click.
	Invoked bool
}

// Strategy is one way of finding a target.
type Strategy struct {
	Name    string
	Applies func(t Target) bool
	Find    func(ctx context.Context, page browser.Page, t Target) (Match, error)
}

// Options tunes the built-in strategies.
type Options struct {
	// ElementWait bounds how long the main-document id lookup waits for the
	// element to attach. Zero queries once without waiting.
	ElementWait time.Duration

	NavFunction string
	PanelClass  string
	RadioName   string
}

func (o Options) withDefaults() Options {
	if o.NavFunction == "" {
		o.NavFunction = DefaultNavFunction
	}
	if o.PanelClass == "" {
		o.PanelClass = DefaultPanelClass
	}
	if o.RadioName == "" {
		o.RadioName = DefaultRadioName
	}
	return o
}

// Locator evaluates strategies in order.
type Locator struct {
	strategies []Strategy
	log        *logging.Logger
}

// NewLocator creates a locator with the built-in strategies.
func NewLocator(opts Options, log *logging.Logger) *Locator {
	return NewLocatorWith(Strategies(opts), log)
}

// NewLocatorWith creates a locator over a custom strategy list.
func NewLocatorWith(strategies []Strategy, log *logging.Logger) *Locator {
	if log == nil {
		log = logging.Discard()
	}
	return &Locator{strategies: strategies, log: log}
}

// Names lists the strategy names in evaluation order.
func (l *Locator) Names() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name
	}
	return names
}

// Locate returns the first match among the strategies that apply to t.
func (l *Locator) Locate(ctx context.Context, page browser.Page, t Target) (Match, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		if s.Applies != nil && !s.Applies(t) {
			continue
		}

		m, err := s.Find(ctx, page, t)
		if err == nil {
			m.Strategy = s.Name
			l.log.Debugf("Located %s via %s in %s", t, s.Name, scopeName(m.Scope))
			return m, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Match{}, ctxErr
		}
		if !errors.Is(err, ErrNotFound) {
			l.log.Debugf("Strategy %s failed for %s: %v", s.Name, t, err)
		}
	}

	return Match{}, fmt.Errorf("%w: %s", ErrNotFound, t)
}

func scopeName(s browser.Scope) string {
	if s == nil {
		return "page"
	}
	return s.Name()
}

// Strategies returns the built-in strategies in evaluation order.
func Strategies(opts Options) []Strategy {
	opts = opts.withDefaults()
	panel := "div." + opts.PanelClass
	radio := browser.Radio(opts.RadioName)

	return []Strategy{
		{
			Name:    "id-main",
			Applies: hasID,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				sel := browser.ByID(t.ID)
				if opts.ElementWait <= 0 {
					return first(ctx, []browser.Scope{page}, sel)
				}
				el, err := page.WaitFor(ctx, sel, opts.ElementWait)
				if err != nil {
					return Match{}, err
				}
				return Match{Scope: page, Element: el}, nil
			},
		},
		{
			Name:    "id-frame",
			Applies: hasID,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, frames(ctx, page), browser.ByID(t.ID))
			},
		},
		{
			Name:    "name-main",
			Applies: hasID,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, []browser.Scope{page}, browser.ByName(t.ID))
			},
		},
		{
			Name:    "name-frame",
			Applies: hasID,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, frames(ctx, page), browser.ByName(t.ID))
			},
		},
		{
			Name: "btnname",
			Applies: func(t Target) bool {
				return t.Kind == action.KindButton && t.ID != ""
			},
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				// Frames first: the form buttons live in the workflow iframe
				scopes := append(frames(ctx, page), page)
				return first(ctx, scopes,
					browser.ByAttr("button", "btnname", t.ID),
					browser.ByAttr("input", "btnname", t.ID),
					browser.ByAttr("", "btnname", t.ID),
					browser.ByAttrContains("button", "guid", t.ID),
					browser.HasText("button", t.ID),
				)
			},
		},
		{
			Name:    "nav-onclick",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, browser.Scopes(ctx, page), browser.OnclickContains("", t.Token))
			},
		},
		{
			Name:    "nav-script",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				script := fmt.Sprintf("%s('%s')", opts.NavFunction, jsEscape(t.Token))
				if _, err := page.Evaluate(ctx, script, nil); err != nil {
					return Match{}, err
				}
				return Match{Scope: page, Invoked: true}, nil
			},
		},
		{
			Name:    "nav-text",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, browser.Scopes(ctx, page), browser.ByText(t.Token))
			},
		},
		{
			Name:    "nav-title",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, browser.Scopes(ctx, page), browser.ByAttrContains("", "title", t.Token))
			},
		},
		{
			Name:    "nav-class-onclick",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, browser.Scopes(ctx, page), browser.OnclickContains(panel, t.Token))
			},
		},
		{
			Name:    "nav-first-class",
			Applies: navToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				return first(ctx, browser.Scopes(ctx, page), panel)
			},
		},
		{
			Name:    "card-row",
			Applies: cardToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				head, tail := CardDigits(t.Token)
				return first(ctx, browser.Scopes(ctx, page), browser.XPathRowRadio(opts.RadioName, head, tail))
			},
		},
		{
			Name:    "card-onclick",
			Applies: cardToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				_, tail := CardDigits(t.Token)
				return first(ctx, browser.Scopes(ctx, page), browser.OnclickContains(radio, tail))
			},
		},
		{
			Name:    "card-scan",
			Applies: cardToken,
			Find: func(ctx context.Context, page browser.Page, t Target) (Match, error) {
				_, tail := CardDigits(t.Token)
				return scanRadios(ctx, browser.Scopes(ctx, page), radio, tail)
			},
		},
	}
}

// hasID gates the identifier strategies. Bank cards are matched on their
// digits only, whatever the column maps to.
func hasID(t Target) bool {
	return t.ID != "" && t.Kind != action.KindCardTail
}

func navToken(t Target) bool {
	return t.Kind == action.KindNavPanel && t.Token != ""
}

func cardToken(t Target) bool {
	return t.Kind == action.KindCardTail && t.Token != ""
}

// CardDigits splits a card token into the digits shown before and after the
// mask. "6227******1142" gives ("6227", "1142"); a bare "1142" gives
// ("", "1142").
func CardDigits(token string) (head, tail string) {
	i := strings.IndexByte(token, '*')
	if i < 0 {
		return "", token
	}
	j := strings.LastIndexByte(token, '*')
	return token[:i], token[j+1:]
}

// frames lists nested frames; a listing failure counts as no frames.
func frames(ctx context.Context, page browser.Page) []browser.Scope {
	scopes, err := page.Frames(ctx)
	if err != nil {
		return nil
	}
	return scopes
}

// first tries each selector against every scope, selector by selector.
func first(ctx context.Context, scopes []browser.Scope, selectors ...string) (Match, error) {
	var lastErr error
	for _, sel := range selectors {
		for _, scope := range scopes {
			el, err := scope.Query(ctx, sel)
			if err == nil {
				return Match{Scope: scope, Element: el}, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Match{}, ctxErr
			}
			if !errors.Is(err, ErrNotFound) {
				lastErr = err
			}
		}
	}
	if lastErr != nil {
		return Match{}, lastErr
	}
	return Match{}, ErrNotFound
}

func scanRadios(ctx context.Context, scopes []browser.Scope, selector, digits string) (Match, error) {
	if digits == "" {
		return Match{}, ErrNotFound
	}
	for _, scope := range scopes {
		radios, err := scope.QueryAll(ctx, selector)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Match{}, ctxErr
			}
			continue
		}
		for _, r := range radios {
			onclick, err := r.Attribute(ctx, "onclick")
			if err != nil {
				continue
			}
			if strings.Contains(onclick, digits) {
				return Match{Scope: scope, Element: r}, nil
			}
		}
	}
	return Match{}, ErrNotFound
}

func jsEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return r.Replace(s)
}
