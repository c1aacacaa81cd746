package app

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/pkg/browser"

	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/ui/status"
	"github.com/Robobluez/streamview/internal/ui/theme"
	"github.com/Robobluez/streamview/internal/viewer"
)

// DefaultPollInterval is how often the sources are polled.
const DefaultPollInterval = 10 * time.Millisecond

// tickMsg drives one viewer step.
type tickMsg time.Time

// actionMsg reports the outcome of a user action run off the loop.
type actionMsg struct {
	text string
	err  error
}

// Traffic reports transport counters. stream.Receiver implements it.
type Traffic interface {
	GraphStats() stream.Stats
	VideoStats() stream.Stats
}

// Options configures the model.
type Options struct {
	Transport    string
	LiveURL      string
	FPS          int
	PollInterval time.Duration
	Traffic      Traffic

	// Defaults to browser.OpenURL and clipboard.WriteAll.
	OpenURL  func(string) error
	CopyText func(string) error
	Now      func() time.Time
}

// Model is the root Bubble Tea model. It owns the viewer: every Step runs
// inside Update.
type Model struct {
	viewer  *viewer.Viewer
	opts    Options
	keys    theme.KeyMap
	help    help.Model
	spinner spinner.Model

	message    string
	messageErr bool

	width  int
	height int
}

// newSpinner creates a styled spinner using the Points style.
func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)
	return s
}

// NewModel creates the root model around v.
func NewModel(v *viewer.Viewer, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		viewer:  v,
		opts:    opts,
		keys:    theme.DefaultKeyMap(),
		help:    help.New(),
		spinner: newSpinner(),
	}
}

// Init starts polling and the waiting spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleTick(), m.spinner.Tick)
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles all messages for the application.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.viewer.Step(time.Time(msg))
		return m, m.scheduleTick()

	case spinner.TickMsg:
		// Stop spinning once data arrived
		if !m.viewer.Stats().Waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionMsg:
		m.setMessage(msg.text, msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.viewer.StopRecording()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Snapshot):
		m.snapshot()
	case key.Matches(msg, m.keys.Record):
		m.toggleRecording()
	case key.Matches(msg, m.keys.Open):
		return m, m.openLive()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLive()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	switch {
	case zone.Get(status.RecordZoneID).InBounds(msg):
		m.toggleRecording()
	case zone.Get(status.SnapshotZoneID).InBounds(msg):
		m.snapshot()
	case zone.Get(status.LiveZoneID).InBounds(msg):
		return m, m.openLive()
	}
	return m, nil
}

func (m *Model) setMessage(text string, err error) {
	if err != nil {
		m.message, m.messageErr = err.Error(), true
		return
	}
	m.message, m.messageErr = text, false
}

func (m *Model) snapshot() {
	path, err := m.viewer.SaveSnapshot(m.opts.Now())
	m.setMessage("snapshot saved to "+path, err)
}

func (m *Model) toggleRecording() {
	if m.viewer.Recording() {
		m.viewer.StopRecording()
		m.setMessage("recording stopped", nil)
		return
	}
	dir, err := m.viewer.StartRecording(m.opts.Now())
	m.setMessage("recording to "+dir, err)
}

func (m Model) openLive() tea.Cmd {
	url := m.opts.LiveURL
	if url == "" {
		return func() tea.Msg { return actionMsg{err: fmt.Errorf("live view is disabled")} }
	}
	open := m.opts.OpenURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return actionMsg{err: fmt.Errorf("failed to open browser: %w", err)}
		}
		return actionMsg{text: "opened " + url}
	}
}

func (m Model) copyLive() tea.Cmd {
	url := m.opts.LiveURL
	if url == "" {
		return func() tea.Msg { return actionMsg{err: fmt.Errorf("live view is disabled")} }
	}
	copyText := m.opts.CopyText
	return func() tea.Msg {
		if err := copyText(url); err != nil {
			return actionMsg{err: fmt.Errorf("failed to copy url: %w", err)}
		}
		return actionMsg{text: "copied " + url}
	}
}
