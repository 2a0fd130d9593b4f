package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// AnswerInput is a single-line recall answer box.
type AnswerInput struct {
	Model textinput.Model
}

// NewAnswerInput creates a focused input limited to charLimit runes.
func NewAnswerInput(placeholder string, charLimit int) AnswerInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return AnswerInput{Model: ti}
}

// Init returns the cursor blink command.
func (a AnswerInput) Init() tea.Cmd {
	return a.Model.Focus()
}

// Update forwards messages to the underlying input.
func (a AnswerInput) Update(msg tea.Msg) (AnswerInput, tea.Cmd) {
	var cmd tea.Cmd
	a.Model, cmd = a.Model.Update(msg)
	return a, cmd
}

func (a AnswerInput) View() string {
	return a.Model.View()
}

// Value returns the trimmed input.
func (a AnswerInput) Value() string {
	return strings.TrimSpace(a.Model.Value())
}

// Reset clears the input for the next card.
func (a *AnswerInput) Reset() {
	a.Model.Reset()
}
