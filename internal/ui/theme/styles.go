package theme

import "github.com/charmbracelet/lipgloss"

// Color palette: teal accent with neutral grays.
var (
	ColorAccent    = lipgloss.Color("#1FB8A6")
	ColorAccentDim = lipgloss.Color("#168A7C")
	ColorWhite     = lipgloss.Color("#FAFAFA")
	ColorGray      = lipgloss.Color("#7D7D7D")
	ColorDarkGray  = lipgloss.Color("#3A3A3A")
	ColorGreen     = lipgloss.Color("#73D216")
	ColorRed       = lipgloss.Color("#EF2929")
	ColorBlue      = lipgloss.Color("#729FCF")
	ColorYellow    = lipgloss.Color("#EDD400")
)

// Layout constants
const (
	NameColumnWidth = 28
	MinViewWidth    = 40
)

// Shared styles
var (
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDarkGray).
			Padding(0, 1)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// Status styles
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	// Header bar
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorAccentDim).
			Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDarkGray).
			Padding(0, 1)

	// Help bar
	HelpBarStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	// Clickable buttons
	ButtonStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDarkGray).
			Padding(0, 1)

	ActiveButtonStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorRed).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorRed).
				Padding(0, 1)
)
