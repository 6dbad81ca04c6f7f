package browser

import (
	"time"
)

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Browser is the engine to launch: chromium, firefox or webkit
	Browser string

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// SlowMo delays every Playwright operation, useful when watching a replay
	SlowMo time.Duration

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for page operations
	Timeout time.Duration

	// SkipInstall skips downloading the Playwright driver and browsers
	SkipInstall bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Field is a form control or clickable entry found in a document.
type Field struct {
	Scope   string   `json:"scope,omitempty"`
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Type    string   `json:"type,omitempty"`
	BtnName string   `json:"btnname,omitempty"`
	OnClick string   `json:"onclick,omitempty"`
	Label   string   `json:"label,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Option is one choice of a select element.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Key returns the identifier a title map should use for the field: its id,
// else its name, else its btnname.
func (f Field) Key() string {
	switch {
	case f.ID != "":
		return f.ID
	case f.Name != "":
		return f.Name
	default:
		return f.BtnName
	}
}

// Default values for sessions
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultBrowser        = "chromium"
)
