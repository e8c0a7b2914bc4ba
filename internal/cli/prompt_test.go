package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, m budgetPrompt, text string) budgetPrompt {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	out, ok := next.(budgetPrompt)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m budgetPrompt, key tea.KeyType) (budgetPrompt, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	out, ok := next.(budgetPrompt)
	require.True(t, ok)
	return out, cmd
}

func TestBudgetPromptRepromptsOnInvalidInput(t *testing.T) {
	m := newBudgetPrompt()

	m = typeText(t, m, "lots")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.done)
	assert.Contains(t, m.errMsg, "is not a number")
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "is not a number")

	m = typeText(t, m, "-10")
	m, _ = press(t, m, tea.KeyEnter)
	assert.False(t, m.done)
	assert.Equal(t, "budget must not be negative", m.errMsg)

	m = typeText(t, m, "56000.00")
	m, cmd = press(t, m, tea.KeyEnter)
	require.True(t, m.done)
	assert.NotNil(t, cmd)
	assert.Equal(t, "56000.00", m.budget.StringFixed(2))
	assert.Empty(t, m.View())
}

func TestBudgetPromptCancel(t *testing.T) {
	m, cmd := press(t, newBudgetPrompt(), tea.KeyEsc)
	assert.True(t, m.cancelled)
	assert.NotNil(t, cmd)
}
