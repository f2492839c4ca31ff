package styles

import "github.com/charmbracelet/lipgloss"

// Centralized Lip Gloss styles for yarvis output and prompts.
// All colors are specified using hex codes.

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2")).
			MarginBottom(1).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingLeft(1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5fd7ff")).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaf00"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#a8a8a8")).
			MarginTop(1).
			Padding(0, 1)

	// Table parts
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fd7ff")).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	MutedCellStyle = CellStyle.
			Foreground(lipgloss.Color("#8a8a8a"))

	BorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fff"))
)

// languageColors maps the color names used in the languages table to hex.
var languageColors = map[string]string{
	"red":    "#db2828",
	"orange": "#f2711c",
	"yellow": "#fbbd08",
	"olive":  "#b5cc18",
	"green":  "#21ba45",
	"teal":   "#00b5ad",
	"blue":   "#2185d0",
	"violet": "#6435c9",
	"purple": "#a333c8",
	"pink":   "#e03997",
	"brown":  "#a5673f",
	"grey":   "#767676",
	"black":  "#1b1c1d",
}

// LanguageStyle colors a language label. Hex values pass through; unknown
// names fall back to the plain cell style.
func LanguageStyle(color string) lipgloss.Style {
	if hex, ok := languageColors[color]; ok {
		return CellStyle.Foreground(lipgloss.Color(hex))
	}
	if len(color) == 7 && color[0] == '#' {
		return CellStyle.Foreground(lipgloss.Color(color))
	}
	return CellStyle
}
