package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"evacsim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an event line for the viewport.
type logMsg struct{ line string }

type runMsg struct{ telemetry.RunRow }
type frameMsg struct{ telemetry.FrameRow }
type summaryMsg struct{ telemetry.SummaryRow }

const maxLogLines = 500

var (
	wallStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	exitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	fireStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	agentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	deadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders a run live using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI before Close interrupts the process so a running simulation stops.
func NewTUIWriter() *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteRun implements RunWriter.
func (w *TUIWriter) WriteRun(row telemetry.RunRow) error {
	w.program.Send(runMsg{row})
	return nil
}

// WriteFrame implements FrameWriter.
func (w *TUIWriter) WriteFrame(row telemetry.FrameRow) error {
	w.program.Send(frameMsg{row})
	return nil
}

// WriteFrames implements batchFrameWriter.
func (w *TUIWriter) WriteFrames(rows []telemetry.FrameRow) error {
	for _, r := range rows {
		_ = w.WriteFrame(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row telemetry.EventRow) error {
	label := exitStyle.Render("ESCAPED")
	if row.EventType == telemetry.EventBurned {
		label = fireStyle.Render("BURNED")
	}
	line := fmt.Sprintf("[%s] tick %d %s agent=%d at (%d,%d)",
		row.Timestamp.Format(time.TimeOnly), row.Tick, label, row.AgentID, row.X, row.Y)
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteSummary implements SummaryWriter.
func (w *TUIWriter) WriteSummary(row telemetry.SummaryRow) error {
	w.program.Send(summaryMsg{row})
	return nil
}

// Wait blocks until the user quits the TUI.
func (w *TUIWriter) Wait() {
	w.sendSignal.Store(false)
	if w.done != nil {
		<-w.done
	}
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	table      table.Model
	vp         viewport.Model
	width      int
	height     int
	wrap       bool
	autoscroll bool
	showMap    bool
	logs       []string

	run     telemetry.RunRow
	plan    []string
	frame   telemetry.FrameRow
	summary *telemetry.SummaryRow
}

func newTUIModel() tuiModel {
	cols := []table.Column{
		{Title: "Tick", Width: 6},
		{Title: "Burning", Width: 8},
		{Title: "Evacuating", Width: 10},
		{Title: "Escaped", Width: 8},
		{Title: "Burned", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithRows([]table.Row{{"0", "0", "0", "0", "0"}}), table.WithHeight(3))
	return tuiModel{
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
		showMap:    true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "m":
			m.showMap = !m.showMap
			m.updateViewportHeight()
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case runMsg:
		m.run = msg.RunRow
		m.plan = strings.Split(strings.TrimRight(msg.Plan, "\n"), "\n")
		m.summary = nil
		m.updateViewportHeight()
	case frameMsg:
		m.frame = msg.FrameRow
		m.table.SetRows([]table.Row{{
			strconv.Itoa(msg.Tick),
			strconv.Itoa(msg.Burning),
			strconv.Itoa(msg.Evacuating),
			strconv.Itoa(msg.Escaped),
			strconv.Itoa(msg.Burned),
		}})
	case summaryMsg:
		s := msg.SummaryRow
		m.summary = &s
		m.appendLog(titleStyle.Render(fmt.Sprintf("run complete after %d ticks: %d escaped, %d burned, %d unresolved",
			s.Ticks, s.Escaped, s.Burned, s.Unresolved)))
	case logMsg:
		m.appendLog(msg.line)
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderBottom()) + 2
	if m.showMap {
		used += len(m.plan) + 1
	}
	h := m.height - used
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.width)
	sections := []string{m.renderHeader(), divider}
	if m.showMap {
		sections = append(sections, m.renderMap(), divider)
	}
	sections = append(sections, m.vp.View(), divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	status := "waiting for run"
	if m.run.RunID != "" {
		status = fmt.Sprintf("run %s  grid %dx%d  agents %d  p_spread %.2f  seed %d",
			m.run.RunID, m.run.Rows, m.run.Cols, m.run.Agents, m.run.SpreadProbability, m.run.Seed)
	}
	if m.width > 0 {
		status = wordwrap.String(status, m.width)
	}
	return titleStyle.Render(status) + "\n" + m.table.View()
}

// renderMap draws the plan with fire and agents overlaid. Agents win over
// fire, fire wins over the floor.
func (m tuiModel) renderMap() string {
	if len(m.plan) == 0 {
		return "No floor plan"
	}
	cells := make([][]string, len(m.plan))
	for r, line := range m.plan {
		cells[r] = make([]string, len(line))
		for c, ch := range line {
			switch ch {
			case '#':
				cells[r][c] = wallStyle.Render("#")
			case 'E':
				cells[r][c] = exitStyle.Render("E")
			default:
				cells[r][c] = " "
			}
		}
	}
	set := func(r, c int, s string) {
		if r >= 0 && r < len(cells) && c >= 0 && c < len(cells[r]) {
			cells[r][c] = s
		}
	}
	for _, yx := range m.frame.FireMap {
		set(yx[0], yx[1], fireStyle.Render("^"))
	}
	for _, a := range m.frame.Agents {
		switch a.Status {
		case string(StatusEvacuating):
			set(a.Y, a.X, agentStyle.Render("@"))
		case string(StatusBurned):
			set(a.Y, a.X, deadStyle.Render("x"))
		}
	}
	rows := make([]string, len(cells))
	for r := range cells {
		rows[r] = strings.Join(cells[r], "")
	}
	return strings.Join(rows, "\n")
}

func (m tuiModel) renderBottom() string {
	flags := fmt.Sprintf("wrap:%t autoscroll:%t map:%t", m.wrap, m.autoscroll, m.showMap)
	return helpStyle.Render("q quit  w wrap  s autoscroll  m map  ↑/↓ scroll  " + flags)
}
