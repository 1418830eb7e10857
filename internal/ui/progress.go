// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ilforge/internal/buildpipeline"
)

const statusWidth = 10

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	waitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// BuildModel is a Bubble Tea model listing every input with its current
// stage. It quits when the event channel closes.
type BuildModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	bar     progress.Model
	units   []unitRow
	byFile  map[string]int
	width   int
	done    bool
}

type unitRow struct {
	file    string
	stage   buildpipeline.Stage
	status  buildpipeline.Status
	elapsed time.Duration
	err     error
}

type eventMsg buildpipeline.Event

type closedMsg struct{}

// NewBuildModel returns a model for the given display names. Events for
// files that were not listed are ignored.
func NewBuildModel(title string, files []string, events <-chan buildpipeline.Event) *BuildModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = activeStyle

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 60

	m := &BuildModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		units:   make([]unitRow, len(files)),
		byFile:  make(map[string]int, len(files)),
		width:   80,
	}
	for i, f := range files {
		m.units[i] = unitRow{file: f, status: buildpipeline.StatusQueued}
		m.byFile[f] = i
	}
	return m
}

func (m *BuildModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait())
}

func (m *BuildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.wait())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *BuildModel) View() string {
	if len(m.units) == 0 {
		return ""
	}
	var b strings.Builder
	ok, failed := m.counts()
	header := fmt.Sprintf("%s %s", m.spinner.View(), m.title)
	if m.done {
		header = fmt.Sprintf("%s: %d built, %d failed", m.title, ok, failed)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-14, 20)
	for _, u := range m.units {
		label := fmt.Sprintf("%*s", statusWidth, rowLabel(u))
		fmt.Fprintf(&b, "  %s %s", rowStyle(u).Render(label), truncate(u.file, nameWidth))
		if u.status == buildpipeline.StatusDone && u.elapsed > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %s", u.elapsed.Round(time.Millisecond))))
		}
		b.WriteByte('\n')
		if u.err != nil {
			b.WriteString("    " + failStyle.Render(truncate(u.err.Error(), m.width-4)) + "\n")
		}
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// Failed reports how many inputs ended in error.
func (m *BuildModel) Failed() int {
	_, failed := m.counts()
	return failed
}

func (m *BuildModel) wait() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *BuildModel) apply(ev buildpipeline.Event) tea.Cmd {
	idx, ok := m.byFile[ev.File]
	if !ok {
		return nil
	}
	u := &m.units[idx]
	u.stage, u.status = ev.Stage, ev.Status
	if ev.Status == buildpipeline.StatusDone {
		u.elapsed = ev.Elapsed
	}
	if ev.Err != nil {
		u.err = ev.Err
	}
	var total float64
	for _, u := range m.units {
		total += completion(u)
	}
	return m.bar.SetPercent(total / float64(len(m.units)))
}

func (m *BuildModel) counts() (ok, failed int) {
	for _, u := range m.units {
		switch u.status {
		case buildpipeline.StatusDone:
			ok++
		case buildpipeline.StatusError:
			failed++
		}
	}
	return ok, failed
}

// completion estimates how far along a row is, from 0 to 1.
func completion(u unitRow) float64 {
	switch u.status {
	case buildpipeline.StatusDone, buildpipeline.StatusError:
		return 1
	case buildpipeline.StatusQueued:
		return 0
	}
	switch u.stage {
	case buildpipeline.StageLoad:
		return 0.1
	case buildpipeline.StageCompile:
		return 0.4
	case buildpipeline.StageEmit, buildpipeline.StageRun:
		return 0.9
	}
	return 0
}

func rowLabel(u unitRow) string {
	switch u.status {
	case buildpipeline.StatusWorking:
		switch u.stage {
		case buildpipeline.StageLoad:
			return "loading"
		case buildpipeline.StageCompile:
			return "compiling"
		case buildpipeline.StageEmit:
			return "writing"
		case buildpipeline.StageRun:
			return "running"
		}
	case buildpipeline.StatusError:
		return "failed"
	}
	return string(u.status)
}

func rowStyle(u unitRow) lipgloss.Style {
	switch u.status {
	case buildpipeline.StatusDone:
		return okStyle
	case buildpipeline.StatusError:
		return failStyle
	case buildpipeline.StatusWorking:
		return activeStyle
	default:
		return waitingStyle
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
