package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/service/commands"
)

// ErrPromptCancelled is returned when the operator leaves the budget prompt.
var ErrPromptCancelled = errors.New("budget prompt cancelled")

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	promptHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	promptErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// budgetPrompt asks for the weekly budget until a non-negative amount is entered.
type budgetPrompt struct {
	input     textinput.Model
	budget    decimal.Decimal
	errMsg    string
	done      bool
	cancelled bool
}

func newBudgetPrompt() budgetPrompt {
	input := textinput.New()
	input.Placeholder = "56000.00"
	input.Prompt = "Rs "
	input.CharLimit = 20
	input.Focus()
	return budgetPrompt{input: input}
}

func (m budgetPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m budgetPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			budget, err := commands.ParseBudget(m.input.Value())
			if err != nil {
				m.errMsg = strings.TrimPrefix(err.Error(), commands.ErrInvalidArguments.Error()+": ")
				m.input.Reset()
				return m, nil
			}
			m.budget = budget
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m budgetPrompt) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("Weekly budget"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(promptErrStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(promptHintStyle.Render("enter to run, esc to quit"))
	b.WriteString("\n")
	return b.String()
}

// PromptBudget runs an interactive prompt on in/out and returns the entered budget.
func PromptBudget(in io.Reader, out io.Writer) (decimal.Decimal, error) {
	final, err := tea.NewProgram(newBudgetPrompt(), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return decimal.Zero, fmt.Errorf("run budget prompt: %w", err)
	}

	m, ok := final.(budgetPrompt)
	if !ok || m.cancelled || !m.done {
		return decimal.Zero, ErrPromptCancelled
	}
	return m.budget, nil
}
