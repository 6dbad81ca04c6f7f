package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Launcher owns the Playwright driver and the sessions opened through it.
type Launcher struct {
	mu          sync.Mutex
	opts        SessionOptions
	sessions    []*Session
	playwright  *playwright.Playwright
	initialized bool
}

// NewLauncher creates a launcher that opens sessions with opts.
func NewLauncher(opts SessionOptions) *Launcher {
	if opts.Browser == "" {
		opts.Browser = DefaultBrowser
	}
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Launcher{opts: opts}
}

// Initialize installs (unless skipped) and starts the Playwright driver.
// Open calls it on first use.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialize()
}

func (l *Launcher) initialize() error {
	if l.initialized {
		return nil
	}

	// Driver output would interleave with the replay log on the console
	opts := &playwright.RunOptions{
		Browsers: []string{l.opts.Browser},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.opts.SkipInstall {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Open launches a browser and returns a new session on a blank page.
func (l *Launcher) Open(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initialize(); err != nil {
		return nil, err
	}

	browserType, err := l.browserType()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	}
	if l.opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(l.opts.SlowMo.Milliseconds()))
	}

	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.opts.Viewport.Width,
			Height: l.opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	session := newSession(browser, bctx, page, l.opts.Headless)
	l.sessions = append(l.sessions, session)
	return session, nil
}

func (l *Launcher) browserType() (playwright.BrowserType, error) {
	switch l.opts.Browser {
	case "chromium":
		return l.playwright.Chromium, nil
	case "firefox":
		return l.playwright.Firefox, nil
	case "webkit":
		return l.playwright.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser: %s", l.opts.Browser)
	}
}

// Shutdown closes every session still open and stops Playwright.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Sessions may already be closed by their owner; errors are expected here
	for _, session := range l.sessions {
		_ = session.Close()
	}
	l.sessions = nil

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		l.initialized = false
	}

	return nil
}
