// Package tui is the terminal status sink: a one-way consumer of
// {AppendLine | WorkComplete | QuitRequested} messages fed by the
// coordinator and supervisors while a run is in progress. It has no back
// channel into the orchestrator beyond QuitRequested, which Run converts
// into a shutdown request, the same bridge pattern
// hugo-lorenzo-mato-quorum-ai's EventBusAdapter uses to turn its event
// bus into bubbletea messages.
package tui

import (
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/swarm-hug/swarm-hug/internal/procreg"
)

// MaxLines bounds the line buffer; oldest lines are dropped once
// exceeded, giving the sink bounded rather than unbounded growth.
const MaxLines = 5000

// AppendLineMsg carries one raw line, ANSI codes and all.
type AppendLineMsg struct{ Line string }

// WorkCompleteMsg signals that the orchestrator has finished; after this
// arrives, a bare quit keystroke no longer needs confirmation.
type WorkCompleteMsg struct{}

// QuitRequestedMsg is emitted when the user quits: after a confirmation
// while WorkComplete has not arrived, or on the bare quit keystroke once it
// has. Run is the only place this turns into a real shutdown request.
type QuitRequestedMsg struct{}

// Sink is the channel the orchestrator writes lines and lifecycle events
// into. It is safe to write to from many goroutines concurrently.
type Sink struct {
	mu     sync.Mutex
	ch     chan tea.Msg
	closed bool
}

// NewSink creates a Sink with a generously buffered channel so a burst of
// agent output never blocks the writer.
func NewSink() *Sink {
	return &Sink{ch: make(chan tea.Msg, 512)}
}

// AppendLine enqueues one line for display.
func (s *Sink) AppendLine(line string) {
	s.send(AppendLineMsg{Line: line})
}

// WorkComplete enqueues the work-complete signal.
func (s *Sink) WorkComplete() {
	s.send(WorkCompleteMsg{})
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
		// Drop rather than block the writer; the viewport is a status
		// display, not a durable log.
	}
}

// Close shuts the sink down, unblocking the model's read loop.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Sink) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.ch
		if !ok {
			return WorkCompleteMsg{}
		}
		return msg
	}
}

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*[a-zA-Z]")

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

type model struct {
	sink   *Sink
	lines  []string
	vp     viewport.Model
	search textinput.Model

	searching     bool
	confirmQuit   bool
	workComplete  bool
	quitRequested bool
	width, height int
	ready         bool
}

func newModel(sink *Sink) model {
	search := textinput.New()
	search.Prompt = "/"
	search.CharLimit = 256
	return model{sink: sink, search: search}
}

func (m model) Init() tea.Cmd {
	return m.sink.waitForMsg()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := msg.Height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width, m.vp.Height = msg.Width, vpHeight
		}
		m.refresh()
		return m, nil

	case AppendLineMsg:
		m.lines = append(m.lines, msg.Line)
		if len(m.lines) > MaxLines {
			m.lines = m.lines[len(m.lines)-MaxLines:]
		}
		m.refresh()
		return m, m.sink.waitForMsg()

	case WorkCompleteMsg:
		if m.workComplete {
			// The sink channel is closed; waitForMsg would otherwise spin,
			// returning this same message immediately forever.
			return m, nil
		}
		m.workComplete = true
		return m, m.sink.waitForMsg()

	case QuitRequestedMsg:
		m.quitRequested = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func quitRequested() tea.Msg { return QuitRequestedMsg{} }

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmQuit {
		switch msg.String() {
		case "y", "Y":
			return m, quitRequested
		default:
			m.confirmQuit = false
			return m, nil
		}
	}

	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.SetValue("")
			m.refresh()
			return m, nil
		case "enter":
			m.searching = false
			m.refresh()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.refresh()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		if m.workComplete {
			return m, quitRequested
		}
		m.confirmQuit = true
		return m, nil
	case "/":
		m.searching = true
		m.search.Focus()
		return m, nil
	default:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	if query == "" {
		m.vp.SetContent(strings.Join(m.lines, "\n"))
		m.vp.GotoBottom()
		return
	}
	var matched []string
	for _, line := range m.lines {
		if strings.Contains(strings.ToLower(stripANSI(line)), query) {
			matched = append(matched, line)
		}
	}
	m.vp.SetContent(strings.Join(matched, "\n"))
	m.vp.GotoBottom()
}

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	modalStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 2)
)

func (m model) View() string {
	if !m.ready {
		return "starting...\n"
	}
	if m.confirmQuit {
		return m.vp.View() + "\n" + modalStyle.Render("Quit before sprints finish? (y/n)")
	}
	if m.searching {
		return m.vp.View() + "\n" + m.search.View()
	}
	status := "running"
	if m.workComplete {
		status = "done"
	}
	return m.vp.View() + "\n" + footerStyle.Render("[q] quit  [/] search  — "+status)
}

// Run drives the sink's program until the orchestrator closes the sink or
// the user confirms quitting. A confirmed quit is translated into a
// shutdown request; the sink itself never talks back to the orchestrator
// any other way.
func Run(sink *Sink, shutdown *procreg.ShutdownFlag) error {
	p := tea.NewProgram(newModel(sink), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(model); ok && fm.quitRequested && shutdown != nil {
		shutdown.Request()
	}
	return nil
}
