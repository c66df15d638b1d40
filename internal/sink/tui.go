package sink

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/CJHwong/gems.sh/internal/cli/formatter"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type chunkMsg string

type finishedMsg struct{}

// viewerModel shows the transcript in a scrollable viewport while it streams.
type viewerModel struct {
	title    string
	content  string
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	ready    bool
	done     bool
	quitting bool
}

func newViewerModel(title string) viewerModel {
	vp := viewport.New(0, 0)
	vp.KeyMap = viewerKeyMap()
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = formatter.StylePurple

	return viewerModel{title: title, viewport: vp, spinner: sp}
}

// viewerKeyMap leaves q free for quitting.
func viewerKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown", " ")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
	}
}

func (m viewerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.ready = true
		m.refresh(true)
		return m, nil

	case chunkMsg:
		follow := m.viewport.AtBottom()
		m.content += string(msg)
		m.refresh(follow)
		return m, nil

	case finishedMsg:
		m.done = true
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *viewerModel) refresh(follow bool) {
	if !m.ready {
		return
	}
	body := m.content
	if m.width > 0 {
		body = lipgloss.NewStyle().Width(m.width).Render(body)
	}
	m.viewport.SetContent(body)
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m viewerModel) View() string {
	if m.quitting {
		return ""
	}
	status := m.spinner.View() + " " + formatter.Dim("streaming")
	if m.done {
		status = formatter.StyleGreen.Render("✓ done")
	}
	header := formatter.StyleHeader.Render(m.title) + "  " + status
	if !m.ready {
		return header + "\n" + m.content
	}
	return header + "\n" + m.viewport.View() + "\n" + m.footer()
}

func (m viewerModel) footer() string {
	pos := formatter.Dim("[END]")
	switch {
	case m.viewport.AtTop() && m.viewport.AtBottom():
		pos = ""
	case m.viewport.AtTop():
		pos = formatter.Dim("[TOP]")
	case !m.viewport.AtBottom():
		pos = formatter.Dim(fmt.Sprintf("[%d%%]", int(m.viewport.ScrollPercent()*100)))
	}
	return strings.TrimSpace(formatter.Dim("↑/↓ scroll  q quit") + "  " + pos)
}

// TUISink runs the viewer model as a full-screen program.
type TUISink struct {
	program *tea.Program

	mu     sync.Mutex
	closed bool
	exited chan struct{}
	err    error
}

// StartTUI starts the viewer. onQuit runs when the program exits, including
// when the user quits before the stream finishes.
func StartTUI(title string, onQuit func(), opts ...tea.ProgramOption) *TUISink {
	defaults := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithOutput(os.Stderr)}
	if f, err := os.Open("/dev/tty"); err == nil {
		defaults = append(defaults, tea.WithInput(f))
	}
	p := tea.NewProgram(newViewerModel(title), append(defaults, opts...)...)
	s := &TUISink{program: p, exited: make(chan struct{})}
	go func() {
		defer close(s.exited)
		_, s.err = p.Run()
		if onQuit != nil {
			onQuit()
		}
	}()
	return s
}

func (s *TUISink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	s.program.Send(chunkMsg(p))
	return len(p), nil
}

// Close marks the transcript finished and waits for the user to leave the
// viewer.
func (s *TUISink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.program.Send(finishedMsg{})
	<-s.exited
	return s.err
}
