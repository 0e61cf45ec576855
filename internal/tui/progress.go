package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/ionmd/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	barWidth = 40
	maxRows  = 8
)

// Model shows run progress and the latest ion positions.
type Model struct {
	title    string
	progress ProgressMsg
	frame    FrameMsg
	scale    float64 // largest |r| seen, m
	done     *DoneMsg
	cancel   func()
	quitting bool
}

// NewModel builds the view. cancel is called when the user quits before
// the run ends.
func NewModel(title string, cancel func()) Model {
	return Model{title: title, cancel: cancel}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done != nil {
				return m, tea.Quit
			}
			if !m.quitting && m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
		}
	case ProgressMsg:
		m.progress = msg
	case FrameMsg:
		m.frame = msg
		for _, x := range msg.Frame {
			m.scale = math.Max(m.scale, r3.Norm(x))
		}
	case DoneMsg:
		m.done = &msg
		if msg.Result != nil {
			m.progress.Percent = percentOf(msg.Result.Steps, m.progress.Steps)
		}
		return m, tea.Quit
	}
	return m, nil
}

func percentOf(step, steps int) int {
	if steps <= 0 {
		return 100
	}
	return 100 * step / steps
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(Title.Render(m.title))
	sb.WriteString("\n\n")

	pct := m.progress.Percent
	filled := barWidth * pct / 100
	sb.WriteString(green.Render(strings.Repeat("█", filled)))
	sb.WriteString(dimmer.Render(strings.Repeat("░", barWidth-filled)))
	sb.WriteString(fmt.Sprintf(" %s", white.Render(fmt.Sprintf("%3d%%", pct))))
	sb.WriteString("\n")
	sb.WriteString(dim.Render(fmt.Sprintf("step %d/%d  t=%.3e s", m.progress.Step, m.progress.Steps, m.progress.Time)))
	sb.WriteString("\n\n")

	sb.WriteString(Box.Render(m.render(m.frame.Frame)))
	sb.WriteString("\n")

	switch {
	case m.done != nil && m.done.Err != nil:
		sb.WriteString(red.Render("failed: " + m.done.Err.Error()))
	case m.done != nil:
		sb.WriteString(green.Render("finished"))
	case m.quitting:
		sb.WriteString(yellow.Render("stopping..."))
	default:
		sb.WriteString(dimmer.Render("q quit"))
	}
	sb.WriteString("\n")
	return sb.String()
}

// render tabulates the latest positions, in µm.
func (m Model) render(f trajectory.Frame) string {
	lines := []string{cyan.Render(fmt.Sprintf("%-5s %11s %11s %11s", "ion", "x", "y", "z"))}
	for i, x := range f {
		if i == maxRows {
			lines = append(lines, dim.Render(fmt.Sprintf("... %d more", len(f)-maxRows)))
			break
		}
		lines = append(lines, magenta.Render(fmt.Sprintf("%-5d", i))+
			white.Render(fmt.Sprintf(" %+11.4f %+11.4f %+11.4f", x.X*1e6, x.Y*1e6, x.Z*1e6)))
	}
	lines = append(lines, dim.Render(fmt.Sprintf("%d ions  max |r| %.3f µm", len(f), m.scale*1e6)))
	return strings.Join(lines, "\n")
}
