// Package prompt asks the operator for input on the terminal while a replay
// is running, e.g. the captcha shown on the login page.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the operator dismisses a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Terminal prompts on a terminal with a bubbletea text input.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithInput reads keys from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(t *Terminal) { t.in = r }
}

// WithOutput renders to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) { t.out = w }
}

// NewTerminal creates a terminal prompter on stdin and stderr.
func NewTerminal(opts ...Option) *Terminal {
	t := &Terminal{in: os.Stdin, out: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prompt shows question and returns the trimmed answer.
func (t *Terminal) Prompt(ctx context.Context, question string, secret bool) (string, error) {
	m, err := t.run(ctx, newModel(question, secret, false))
	if err != nil {
		return "", err
	}
	return m.answer(), nil
}

// Confirm shows message and waits for Enter.
func (t *Terminal) Confirm(ctx context.Context, message string) error {
	_, err := t.run(ctx, newModel(message, false, true))
	return err
}

func (t *Terminal) run(ctx context.Context, m model) (model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)

	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return m, ctxErr
		}
		return m, fmt.Errorf("failed to run prompt: %w", err)
	}

	result, ok := final.(model)
	if !ok {
		return m, fmt.Errorf("unexpected prompt model %T", final)
	}
	if result.cancelled {
		return result, ErrCancelled
	}
	return result, nil
}
