// Package prompt holds the small interactive models used by the CLI when a
// value is missing: a masked password input and a yes/no confirmation.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"yarvis/internal/logging"
	"yarvis/internal/tui/styles"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves a prompt with esc or ctrl+c.
var ErrCancelled = errors.New("prompt cancelled")

// InputModel asks for one line of text.
type InputModel struct {
	title    string
	input    textinput.Model
	validate func(string) error

	err       error
	done      bool
	cancelled bool
}

// NewInput builds an input prompt. secret masks the typed characters.
func NewInput(title, placeholder string, secret bool) InputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()

	return InputModel{title: title, input: ti}
}

// WithValidator rejects submissions for which f returns an error.
func (m InputModel) WithValidator(f func(string) error) InputModel {
	m.validate = f
	return m
}

func (m InputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	logging.LogMessage(msg)

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			value := m.input.Value()
			if strings.TrimSpace(value) == "" {
				m.err = errors.New("a value is required")
				return m, nil
			}
			if m.validate != nil {
				if err := m.validate(value); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.err = nil
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m InputModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	sections := []string{
		styles.TitleStyle.UnsetMarginBottom().Render(m.title),
		styles.InputStyle.Render(m.input.View()),
	}
	if m.err != nil {
		sections = append(sections, styles.ErrorStyle.Render("Error: "+m.err.Error()))
	}
	sections = append(sections, styles.HelpStyle.Render("enter submit • esc cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// Value returns the submitted text.
func (m InputModel) Value() string {
	return m.input.Value()
}

func (m InputModel) Cancelled() bool {
	return m.cancelled
}

// ConfirmModel asks a yes/no question.
type ConfirmModel struct {
	question string
	def      bool

	answer    bool
	done      bool
	cancelled bool
}

// NewConfirm builds a confirmation prompt; enter picks def.
func NewConfirm(question string, def bool) ConfirmModel {
	return ConfirmModel{question: question, def: def}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	logging.LogMessage(msg)

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.answer, m.done = true, true
	case "n", "N":
		m.answer, m.done = false, true
	case "enter":
		m.answer, m.done = m.def, true
	case "esc", "ctrl+c":
		m.cancelled = true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m ConfirmModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	choices := "y/N"
	if m.def {
		choices = "Y/n"
	}
	return fmt.Sprintf("%s %s\n", styles.WarningStyle.Render(m.question), styles.SubtitleStyle.Render("["+choices+"]"))
}

// Answer reports the choice. Only meaningful when not cancelled.
func (m ConfirmModel) Answer() bool {
	return m.answer
}

func (m ConfirmModel) Cancelled() bool {
	return m.cancelled
}

// Password runs a masked input prompt on in/out.
func Password(in io.Reader, out io.Writer, title string) (string, error) {
	final, err := tea.NewProgram(NewInput(title, "password", true), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}
	m := final.(InputModel)
	if m.Cancelled() {
		return "", ErrCancelled
	}
	return m.Value(), nil
}

// Confirm runs a yes/no prompt on in/out.
func Confirm(in io.Reader, out io.Writer, question string, def bool) (bool, error) {
	final, err := tea.NewProgram(NewConfirm(question, def), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	m := final.(ConfirmModel)
	if m.Cancelled() {
		return false, ErrCancelled
	}
	return m.Answer(), nil
}
