package prompt

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m model, key tea.KeyType) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

func TestModelAnswer(t *testing.T) {
	m := newModel("Captcha shown in the browser", false, false)
	m = typeText(t, m, " ab12 ")

	m, cmd := press(t, m, tea.KeyEnter)
	assert.True(t, m.done)
	assert.False(t, m.cancelled)
	assert.NotNil(t, cmd)
	assert.Equal(t, "ab12", m.answer())
}

func TestModelCancel(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		m := newModel("q", false, false)
		m, cmd := press(t, m, key)
		assert.True(t, m.cancelled)
		assert.NotNil(t, cmd)
	}
}

func TestModelSecretView(t *testing.T) {
	m := newModel("Password for 2020001", true, false)
	m = typeText(t, m, "hunter2")

	view := m.View()
	assert.Contains(t, view, "Password for 2020001")
	assert.NotContains(t, view, "hunter2")
	assert.Equal(t, "hunter2", m.answer())
}

func TestModelConfirm(t *testing.T) {
	m := newModel("Replay finished.", false, true)
	assert.Nil(t, m.Init())

	m = typeText(t, m, "ignored")
	assert.Empty(t, m.answer())
	assert.Contains(t, m.View(), "Press Enter to continue")

	m, _ = press(t, m, tea.KeyEnter)
	assert.True(t, m.done)
}

func TestNewTerminalOptions(t *testing.T) {
	in := strings.NewReader("")
	out := &bytes.Buffer{}

	term := NewTerminal(WithInput(in), WithOutput(out))
	assert.Equal(t, in, term.in)
	assert.Equal(t, out, term.out)
}
