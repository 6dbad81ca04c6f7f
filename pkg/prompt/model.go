package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// model is a single question answered with Enter. In confirm mode there is
// no input box and Enter only acknowledges the message.
type model struct {
	question  string
	confirm   bool
	input     textinput.Model
	done      bool
	cancelled bool
}

func newModel(question string, secret, confirm bool) model {
	ti := textinput.New()
	ti.Placeholder = "type here, Enter to submit"
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()

	return model{question: question, confirm: confirm, input: ti}
}

func (m model) Init() tea.Cmd {
	if m.confirm {
		return nil
	}
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	if m.confirm {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(questionStyle.Render(m.question))
	b.WriteString("\n")

	if m.done {
		b.WriteString(doneStyle.Render("✓"))
		b.WriteString("\n")
		return b.String()
	}

	if !m.confirm {
		b.WriteString(inputBoxStyle.Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("Enter to submit • Esc to cancel"))
	} else {
		b.WriteString(hintStyle.Render("Press Enter to continue"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) answer() string {
	return strings.TrimSpace(m.input.Value())
}
