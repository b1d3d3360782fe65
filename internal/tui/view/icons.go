package view

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Icon constants
const (
	IconCheck     = "✔" // U+2714
	IconCross     = "❌" // U+274C
	IconWarning   = "⚠" // U+26A0 without VS16
	IconHourglass = "⏳" // U+23F3
	IconSnake     = "🐍" // U+1F40D
	IconPackage   = "📦" // U+1F4E6
	IconGlobe     = "🌐" // U+1F310
	IconScroll    = "📜" // U+1F4DC
	IconSearch    = "🔍" // U+1F50D
	IconTrash     = "🗑" // U+1F5D1 without VS16
)

// SafeIcon wraps an icon with trailing spacing sized to its display width so
// a double-cell glyph does not swallow the following character.
func SafeIcon(icon string) string {
	w := runewidth.StringWidth(icon)
	spaces := 1
	if w >= 2 {
		spaces = 2
	}
	return fmt.Sprintf("%s%s", icon, strings.Repeat(" ", spaces))
}

// Truncate shortens s to at most width display cells, appending an ellipsis
// when anything was cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
