package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	dialogue "github.com/koscakluka/ema-companion/core"
	"github.com/koscakluka/ema-companion/core/conversations"
	"github.com/koscakluka/ema-companion/core/events"
	"github.com/muesli/reflow/wordwrap"
)

// sessionControl is the part of the controller the UI drives.
type sessionControl interface {
	Start(ctx context.Context) error
	Stop()
	State() dialogue.State
}

type eventMsg struct{ event events.Event }

type startedMsg struct{ err error }

type stoppedMsg struct{}

type line struct {
	speaker conversations.Speaker
	text    string
	note    string
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("120"))
	partialStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type model struct {
	ctx     context.Context
	control sessionControl

	state   string
	message string
	partial string
	lines   []line
	// open maps assistant turn sequences to their index in lines.
	open map[uint64]int

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	ready    bool
}

func newModel(ctx context.Context, control sessionControl) model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		control:  control,
		state:    dialogue.StateIdle.String(),
		open:     map[uint64]int{},
		spinner:  s,
		viewport: viewport.New(80, 20),
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			return m, m.toggle()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.ready = true

	case startedMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
		}

	case stoppedMsg:
		m.partial = ""

	case eventMsg:
		m = m.applyEvent(msg.event)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	return m, nil
}

func (m model) toggle() tea.Cmd {
	if m.control.State() == dialogue.StateIdle {
		return func() tea.Msg {
			return startedMsg{err: m.control.Start(m.ctx)}
		}
	}
	return func() tea.Msg {
		m.control.Stop()
		return stoppedMsg{}
	}
}

func (m model) applyEvent(event events.Event) model {
	switch e := event.(type) {
	case events.SessionStateChanged:
		m.state = e.Current
		m.message = e.Message
		if e.Current != dialogue.StateListening.String() {
			m.partial = ""
		}
	case events.UserTranscriptPartial:
		m.partial = e.Transcript
	case events.AssistantGreeting:
		m.lines = append(m.lines, line{speaker: conversations.SpeakerAssistant, text: e.Text})
	case events.TurnAppended:
		if e.Turn.Speaker == conversations.SpeakerUser {
			m.partial = ""
		}
		m.lines = append(m.lines, line{speaker: e.Turn.Speaker, text: e.Turn.Text})
		if !e.Turn.IsEnded() {
			m.open[e.Turn.Sequence] = len(m.lines) - 1
		}
	case events.TurnEnded:
		if i, ok := m.open[e.Turn.Sequence]; ok {
			delete(m.open, e.Turn.Sequence)
			switch {
			case e.Turn.SpeechFailed:
				m.lines[i].note = "(not spoken)"
			case e.Turn.Interrupted:
				m.lines[i].note = "(interrupted)"
			}
		}
	case events.RecognitionFault:
		if !e.Recoverable {
			m.message = fmt.Sprintf("recognition failed: %s", e.FaultKind)
		}
	}
	return m
}

func (m model) renderTranscript() string {
	width := max(m.width-2, 20)

	var b strings.Builder
	for _, l := range m.lines {
		label := assistantStyle.Render("Companion:")
		if l.speaker == conversations.SpeakerUser {
			label = userStyle.Render("You:")
		}
		text := l.text
		if l.note != "" {
			text += " " + helpStyle.Render(l.note)
		}
		b.WriteString(wordwrap.String(label+" "+text, width))
		b.WriteString("\n")
	}
	if m.partial != "" {
		b.WriteString(partialStyle.Render(wordwrap.String(m.partial+"…", width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) View() string {
	var b strings.Builder

	status := m.state
	if m.state != dialogue.StateIdle.String() && m.state != dialogue.StateError.String() {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(titleStyle.Render("ema companion") + "  " + status + "\n")
	if m.message != "" {
		b.WriteString(errorStyle.Render(m.message) + "\n")
	}
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderTranscript())
	}
	b.WriteString("\n" + helpStyle.Render("space: start/stop • q: quit"))
	return b.String()
}
