package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NoColor reports whether colored output is disabled through NO_COLOR
// (https://no-color.org/).
func NoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

var (
	ColorMuted  = lipgloss.Color("#95A5A6")
	ColorAccent = lipgloss.Color("#0078D4") // Azure blue
)

var (
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Render applies style unless NO_COLOR is set.
func Render(style lipgloss.Style, s string) string {
	if NoColor() {
		return s
	}
	return style.Render(s)
}

// plainStyles keeps level labels but drops their colors.
func plainStyles() *log.Styles {
	styles := log.DefaultStyles()
	for level, style := range styles.Levels {
		styles.Levels[level] = lipgloss.NewStyle().SetString(style.Value())
	}
	styles.Key = lipgloss.NewStyle()
	styles.Value = lipgloss.NewStyle()
	styles.Prefix = lipgloss.NewStyle()
	return styles
}
