package app

import (
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Robobluez/streamview/internal/ui/status"
	"github.com/Robobluez/streamview/internal/ui/theme"
)

// View renders the full application.
// zone.Scan() strips bubblezone markers and records zone positions for mouse hit-testing.
func (m Model) View() string {
	width := max(m.width, theme.MinViewWidth)

	info := status.Info{
		Transport:  m.opts.Transport,
		LiveURL:    m.opts.LiveURL,
		FPS:        m.opts.FPS,
		Viewer:     m.viewer.Stats(),
		Message:    m.message,
		MessageErr: m.messageErr,
	}
	if m.opts.Traffic != nil {
		info.Graph = m.opts.Traffic.GraphStats()
		info.Video = m.opts.Traffic.VideoStats()
	}

	body := theme.BorderStyle.Width(width - 2).Render(status.View(info, m.spinner.View(), width-6))
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		status.Header(width, m.opts.Transport),
		body,
		status.HelpBar(m.help.View(m.keys), width),
	))
}
