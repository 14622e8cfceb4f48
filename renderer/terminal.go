package renderer

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the word wrap width of the terminal output.
const DefaultWidth = 100

// TerminalOutput renders markdown for the terminal, with a dark or light style.
func TerminalOutput(md string, darkMode bool) (string, error) {
	style := "light"
	if darkMode {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(DefaultWidth),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
