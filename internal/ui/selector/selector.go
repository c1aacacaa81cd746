// Package selector is the interactive picker of the demo publisher: one key
// per stream switches it on or off.
package selector

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Robobluez/streamview/internal/demo"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/ui/status"
	"github.com/Robobluez/streamview/internal/ui/theme"
)

// Graphs get lower case keys, videos upper case ones. q is reserved for quit.
const (
	graphKeys = "abcdefghijklmnoprstuvwxyz"
	videoKeys = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

const refreshInterval = 250 * time.Millisecond

// Toggler switches streams. demo.Runner implements it.
type Toggler interface {
	Toggle(kind string, idx int) (bool, error)
	SetAll(on bool)
	Items(kind string) []demo.Item
	Stats() (sent, failed uint64)
}

type refreshMsg struct{}

type keyMap struct {
	AllOn  key.Binding
	AllOff key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.AllOn, k.AllOff, k.Quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// Model lists the streams of a scenario.
type Model struct {
	runner    Toggler
	transport string
	keys      keyMap
	help      help.Model
	err       error
	width     int
}

// New creates the selector for runner.
func New(runner Toggler, transport string) Model {
	return Model{
		runner:    runner,
		transport: transport,
		keys: keyMap{
			AllOn:  key.NewBinding(key.WithKeys("*"), key.WithHelp("*", "send all")),
			AllOff: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "stop all")),
			Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
		},
		help: help.New(),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Init starts the counter refresh.
func (m Model) Init() tea.Cmd { return refresh() }

// Update handles key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case refreshMsg:
		return m, refresh()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.AllOn):
			m.runner.SetAll(true)
		case key.Matches(msg, m.keys.AllOff):
			m.runner.SetAll(false)
		default:
			m.err = m.toggle(msg.String())
		}
	}
	return m, nil
}

func (m Model) toggle(k string) error {
	if len(k) != 1 {
		return nil
	}
	if i := strings.Index(graphKeys, k); i >= 0 {
		_, err := m.runner.Toggle(stream.KindGraph, i)
		return err
	}
	if i := strings.Index(videoKeys, k); i >= 0 {
		_, err := m.runner.Toggle(stream.KindVideo, i)
		return err
	}
	return nil
}

// View renders both stream lists.
func (m Model) View() string {
	width := max(m.width, theme.MinViewWidth)
	sent, failed := m.runner.Stats()

	counters := theme.DimStyle.Render(fmt.Sprintf("%d published, %d failed", sent, failed))
	if failed > 0 {
		counters = theme.WarnStyle.Render(fmt.Sprintf("%d published, %d failed", sent, failed))
	}
	sections := []string{
		list("Graphs", graphKeys, m.runner.Items(stream.KindGraph), width),
		list("Videos", videoKeys, m.runner.Items(stream.KindVideo), width),
		counters,
	}
	if m.err != nil {
		sections = append(sections, theme.ErrorStyle.Render(status.Truncate(m.err.Error(), width)))
	}

	body := theme.BorderStyle.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return lipgloss.JoinVertical(lipgloss.Left,
		status.Header(width, m.transport),
		body,
		status.HelpBar(m.help.View(m.keys), width),
	)
}

func list(title, keys string, items []demo.Item, width int) string {
	lines := []string{theme.TitleStyle.Render(title)}
	if len(items) == 0 {
		lines = append(lines, theme.DimStyle.Render("  none"))
	}
	for i, it := range items {
		k := " "
		if i < len(keys) {
			k = keys[i : i+1]
		}
		line := fmt.Sprintf("%s : %s", theme.LabelStyle.Render(k), status.Truncate(it.Name, width-20))
		if it.Active {
			line += " " + theme.SuccessStyle.Render("[sending ..]")
		}
		lines = append(lines, "  "+line)
	}
	return strings.Join(lines, "\n") + "\n"
}
