// Package ui renders styled terminal output for the CLI. Styling is
// dropped automatically when stdout is not a terminal or NO_COLOR is set.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#86D993"})
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#F5C76B"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF8A80"})
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#82B1FF"})
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"})
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(os.Stdout) {
		DisableColor()
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// DisableColor turns off all styling.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// RenderPass renders s as a success marker.
func RenderPass(s string) string {
	return passStyle.Render(s)
}

// RenderWarn renders s as a warning.
func RenderWarn(s string) string {
	return warnStyle.Render(s)
}

// RenderFail renders s as an error.
func RenderFail(s string) string {
	return failStyle.Render(s)
}

// RenderAccent renders s highlighted.
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderMuted renders s de-emphasised.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderBold renders s in bold.
func RenderBold(s string) string {
	return boldStyle.Render(s)
}

// Field formats an aligned "label: value" line indented under a header.
func Field(label, value string) string {
	return fmt.Sprintf("   %-12s %s", label+":", value)
}

// Header formats a section title with a leading glyph.
func Header(glyph, title string) string {
	return fmt.Sprintf("\n%s %s\n", glyph, RenderBold(title))
}

// Plural returns "1 recording" or "3 recordings".
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	if strings.HasSuffix(noun, "y") && !strings.HasSuffix(noun, "ey") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
