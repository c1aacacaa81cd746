// Package status renders the terminal summary of a running viewer: which
// streams are placed or blocked, traffic counters and the clickable
// record/snapshot/live buttons.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/ui/theme"
	"github.com/Robobluez/streamview/internal/viewer"
	"github.com/Robobluez/streamview/version"
)

// Zone IDs of the clickable buttons.
const (
	RecordZoneID   = "status-record"
	SnapshotZoneID = "status-snapshot"
	LiveZoneID     = "status-live"
)

// Info is everything the status view shows.
type Info struct {
	Transport string
	LiveURL   string
	FPS       int
	Viewer    viewer.Stats
	Graph     stream.Stats
	Video     stream.Stats

	// Message is the outcome of the last user action.
	Message    string
	MessageErr bool
}

// Header renders the title bar with a transport badge on the right.
func Header(width int, transport string) string {
	left := theme.HeaderStyle.Render(" streamview ")
	right := ""
	if transport != "" {
		right = theme.BadgeStyle.Render(transport)
	}

	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	fill := lipgloss.NewStyle().
		Background(theme.ColorDarkGray).
		Render(strings.Repeat(" ", gap))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, fill, right)
}

// View renders the status body. spinner is shown while no data has arrived.
func View(info Info, spinner string, width int) string {
	width = max(width, theme.MinViewWidth)
	var sections []string

	if info.Viewer.Waiting {
		sections = append(sections, spinner+" "+theme.DimStyle.Render(viewer.DefaultLeader))
	}

	nameWidth := min(theme.NameColumnWidth, width/2)
	sections = append(sections,
		streamTable("Videos", info.Viewer.Videos, info.Viewer.BlockedVideos, nameWidth),
		streamTable("Graphs", info.Viewer.Graphs, info.Viewer.BlockedGraphs, nameWidth),
		counters(info),
		buttons(info),
	)

	if info.Message != "" {
		style := theme.SuccessStyle
		if info.MessageErr {
			style = theme.ErrorStyle
		}
		sections = append(sections, style.Render(ansi.Truncate(info.Message, width, "…")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// streamTable lists placed names, then blocked ones.
func streamTable(title string, names, blocked []string, nameWidth int) string {
	lines := []string{theme.TitleStyle.Render(title)}
	if len(names) == 0 && len(blocked) == 0 {
		lines = append(lines, "  "+theme.DimStyle.Render("none yet"))
	}
	for _, n := range names {
		lines = append(lines, "  "+theme.ValueStyle.Render(Truncate(n, nameWidth)))
	}
	for _, n := range blocked {
		lines = append(lines, "  "+theme.WarnStyle.Render(Truncate(n, nameWidth)+" (blocked, does not fit)"))
	}
	return strings.Join(lines, "\n")
}

func counters(info Info) string {
	row := func(label, value string) string {
		return theme.LabelStyle.Render(fmt.Sprintf("%-8s", label)) + " " + theme.ValueStyle.Render(value)
	}
	traffic := func(s stream.Stats) string {
		return fmt.Sprintf("%d msgs, %d dropped, %d malformed", s.Received, s.Dropped, s.DecodeErrors)
	}

	frames := fmt.Sprintf("%d presented @ %d fps", info.Viewer.Presented, info.FPS)
	if info.Viewer.Recorded > 0 || info.Viewer.Failed > 0 {
		frames += fmt.Sprintf(", %d recorded", info.Viewer.Recorded)
		if info.Viewer.Failed > 0 {
			frames += fmt.Sprintf(" (%d failed)", info.Viewer.Failed)
		}
	}
	return strings.Join([]string{
		row("frames", frames),
		row("graph", traffic(info.Graph)),
		row("video", traffic(info.Video)),
	}, "\n")
}

func buttons(info Info) string {
	rec := theme.ButtonStyle.Render("record")
	if info.Viewer.Recording {
		rec = theme.ActiveButtonStyle.Render("● recording")
	}
	parts := []string{
		zone.Mark(RecordZoneID, rec),
		zone.Mark(SnapshotZoneID, theme.ButtonStyle.Render("snapshot")),
	}
	if info.LiveURL != "" {
		parts = append(parts, zone.Mark(LiveZoneID, theme.ButtonStyle.Render("live "+info.LiveURL)))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if info.Viewer.Recording && info.Viewer.RecordDir != "" {
		row = lipgloss.JoinVertical(lipgloss.Left, row, theme.DimStyle.Render("  → "+info.Viewer.RecordDir))
	}
	return row
}

// HelpBar renders the key help with the version right-aligned.
func HelpBar(help string, width int) string {
	ver := theme.DimStyle.Render(version.GetVersion())
	gap := max(2, width-ansi.StringWidth(help)-ansi.StringWidth(ver)-4) // 4 for HelpBarStyle padding
	return theme.HelpBarStyle.Render(help + strings.Repeat(" ", gap) + ver)
}

// Truncate shortens s to at most width cells.
func Truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}
