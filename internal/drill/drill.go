// Package drill is a terminal flashcard drill: cards are generated from a
// passage, the learner types each answer, and the grading flow scores it.
package drill

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/ui/components"
	"github.com/abhisek/studypal/internal/ui/layout"
	"github.com/abhisek/studypal/internal/ui/theme"
)

// Tutor is the subset of the tutor service the drill needs.
type Tutor interface {
	Flashcards(ctx context.Context, userID string, in flow.FlashcardsInput) (*flow.FlashcardSet, error)
	Grade(ctx context.Context, userID string, in flow.GradeInput) (*flow.Grade, error)
}

// Options configures a drill.
type Options struct {
	UserID string
	Text   string
	Count  int
}

// Result is one graded card.
type Result struct {
	Card   flow.Flashcard
	Answer string
	Grade  flow.Grade
}

type phase int

const (
	phaseLoading phase = iota
	phaseAsking
	phaseGrading
	phaseFeedback
	phaseSummary
	phaseError
)

type cardsMsg struct {
	set *flow.FlashcardSet
	err error
}

type gradedMsg struct {
	grade *flow.Grade
	err   error
}

// Model is the drill's Bubble Tea model.
type Model struct {
	ctx     context.Context
	tutor   Tutor
	opts    Options
	phase   phase
	cards   []flow.Flashcard
	current int
	input   components.AnswerInput
	results []Result
	err     error
	width   int
	height  int
}

// New creates a drill model.
func New(ctx context.Context, t Tutor, opts Options) Model {
	return Model{
		ctx:   ctx,
		tutor: t,
		opts:  opts,
		input: components.NewAnswerInput("Type what you remember...", 500),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCards(), m.input.Init())
}

func (m Model) loadCards() tea.Cmd {
	return func() tea.Msg {
		set, err := m.tutor.Flashcards(m.ctx, m.opts.UserID, flow.FlashcardsInput{Text: m.opts.Text, Count: m.opts.Count})
		return cardsMsg{set: set, err: err}
	}
}

func (m Model) grade(card flow.Flashcard, answer string) tea.Cmd {
	return func() tea.Msg {
		g, err := m.tutor.Grade(m.ctx, m.opts.UserID, flow.GradeInput{
			Question:    card.Front,
			ModelAnswer: card.Back,
			UserAnswer:  answer,
		})
		return gradedMsg{grade: g, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case cardsMsg:
		if msg.err != nil {
			m.phase, m.err = phaseError, msg.err
			return m, nil
		}
		m.cards = msg.set.Flashcards
		m.phase = phaseAsking
		if len(m.cards) == 0 {
			m.phase = phaseSummary
		}
		return m, nil

	case gradedMsg:
		if msg.err != nil {
			m.phase, m.err = phaseError, msg.err
			return m, nil
		}
		m.results[len(m.results)-1].Grade = *msg.grade
		m.phase = phaseFeedback
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.phase == phaseAsking {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseAsking:
		switch key {
		case "enter":
			card := m.cards[m.current]
			answer := m.input.Value()
			m.results = append(m.results, Result{Card: card, Answer: answer})
			m.phase = phaseGrading
			return m, m.grade(card, answer)
		case "esc":
			m.phase = phaseSummary
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case phaseFeedback:
		if key == "esc" {
			m.phase = phaseSummary
			return m, nil
		}
		m.current++
		if m.current >= len(m.cards) {
			m.phase = phaseSummary
			return m, nil
		}
		m.input.Reset()
		m.phase = phaseAsking
		return m, nil

	case phaseSummary, phaseError:
		switch key {
		case "enter", "esc", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// Results returns the graded cards so far.
func (m Model) Results() []Result {
	return m.results
}

// Err returns the error that stopped the drill, if any.
func (m Model) Err() error {
	return m.err
}

// Tally counts correct answers and averages the scores.
func Tally(results []Result) (correct int, avg float64) {
	if len(results) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range results {
		if r.Grade.IsCorrect {
			correct++
		}
		total += r.Grade.Score
	}
	return correct, float64(total) / float64(len(results))
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	correct, _ := Tally(m.results)
	header := layout.RenderHeader("Flashcard drill", fmt.Sprintf("✓ %d", correct), m.width)
	footer := layout.RenderFooter(m.keyHints(), m.width)
	v.SetContent(layout.RenderFrame(header, m.content(m.width), footer, m.width, m.height))
	return v
}

func (m Model) keyHints() []layout.KeyHint {
	switch m.phase {
	case phaseAsking:
		return []layout.KeyHint{{Key: "Enter", Description: "Submit"}, {Key: "Esc", Description: "Finish"}}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Next card"}, {Key: "Esc", Description: "Finish"}}
	case phaseSummary, phaseError:
		return []layout.KeyHint{{Key: "Enter", Description: "Quit"}}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (m Model) content(width int) string {
	cardWidth := min(width-8, 70)
	center := func(s string) string { return lipgloss.PlaceHorizontal(width, lipgloss.Center, s) }

	var b strings.Builder
	b.WriteString("\n")

	switch m.phase {
	case phaseLoading:
		b.WriteString(center(theme.Hint.Render(fmt.Sprintf("Making %d flashcards...", m.opts.Count))))

	case phaseError:
		b.WriteString(center(theme.Incorrect.Render("Something went wrong")))
		b.WriteString("\n\n")
		b.WriteString(center(theme.Body.Width(cardWidth).Render(m.err.Error())))

	case phaseAsking, phaseGrading, phaseFeedback:
		bar := components.ProgressBar{Label: "Cards", Done: len(m.results), Total: len(m.cards), Width: cardWidth}
		b.WriteString(center(bar.View()))
		b.WriteString("\n\n")

		card := m.cards[m.current]
		b.WriteString(center(theme.Card.Width(cardWidth).Render(theme.Title.Render("Q: ") + card.Front)))
		b.WriteString("\n\n")

		switch m.phase {
		case phaseAsking:
			b.WriteString(center(m.input.View()))
		case phaseGrading:
			b.WriteString(center(theme.Hint.Render("Grading...")))
		case phaseFeedback:
			b.WriteString(m.feedback(cardWidth, center))
		}

	case phaseSummary:
		correct, avg := Tally(m.results)
		b.WriteString(center(theme.Title.Render("Drill complete!")))
		b.WriteString("\n\n")
		b.WriteString(center(theme.Score.Render(fmt.Sprintf("%d of %d correct   average score %.0f", correct, len(m.results), avg))))
		b.WriteString("\n\n")
		for i, r := range m.results {
			mark := theme.Correct.Render("✓")
			if !r.Grade.IsCorrect {
				mark = theme.Incorrect.Render("✗")
			}
			b.WriteString(center(fmt.Sprintf("%s %2d. %-40s %3d", mark, i+1, truncate(r.Card.Front, 40), r.Grade.Score)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) feedback(width int, center func(string) string) string {
	r := m.results[len(m.results)-1]
	verdict := theme.Correct.Render(fmt.Sprintf("Correct! %d/100", r.Grade.Score))
	if !r.Grade.IsCorrect {
		verdict = theme.Incorrect.Render(fmt.Sprintf("Not quite. %d/100", r.Grade.Score))
	}

	var b strings.Builder
	b.WriteString(center(verdict))
	b.WriteString("\n\n")
	b.WriteString(center(theme.Body.Width(width).Render(r.Grade.Feedback)))
	b.WriteString("\n\n")
	b.WriteString(center(theme.Hint.Width(width).Render("Answer: " + r.Card.Back)))
	for _, tip := range r.Grade.Improvements {
		b.WriteString("\n")
		b.WriteString(center(theme.Hint.Width(width).Render("• " + tip)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the drill and returns the graded cards when it ends.
func Run(ctx context.Context, t Tutor, opts Options) ([]Result, error) {
	final, err := tea.NewProgram(New(ctx, t, opts)).Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	return m.Results(), m.Err()
}
